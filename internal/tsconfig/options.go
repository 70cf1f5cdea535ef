// Package tsconfig models TypeScript compiler options and loads them from
// tsconfig.json files.
package tsconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/conneroisu/vuedts/internal/alias"
)

// CompilerOptions are the compiler settings handed to the engine. Fields left
// nil were not set by the user. Options this package does not model are kept
// in Extra and passed through verbatim.
type CompilerOptions struct {
	Strict                 *bool    `json:"strict,omitempty"`
	BaseURL                string   `json:"baseUrl,omitempty"`
	Paths                  PathMap  `json:"paths,omitempty"`
	TypeRoots              []string `json:"typeRoots,omitempty"`
	Types                  []string `json:"types,omitempty"`
	JSX                    string   `json:"jsx,omitempty"`
	JSXFactory             string   `json:"jsxFactory,omitempty"`
	Target                 string   `json:"target,omitempty"`
	Module                 string   `json:"module,omitempty"`
	ModuleResolution       string   `json:"moduleResolution,omitempty"`
	Lib                    []string `json:"lib,omitempty"`
	Declaration            *bool    `json:"declaration,omitempty"`
	EmitDeclarationOnly    *bool    `json:"emitDeclarationOnly,omitempty"`
	NoEmit                 *bool    `json:"noEmit,omitempty"`
	NoEmitOnError          *bool    `json:"noEmitOnError,omitempty"`
	AllowNonTsExtensions   *bool    `json:"allowNonTsExtensions,omitempty"`
	ExperimentalDecorators *bool    `json:"experimentalDecorators,omitempty"`
	NoImplicitAny          *bool    `json:"noImplicitAny,omitempty"`
	NoUnusedLocals         *bool    `json:"noUnusedLocals,omitempty"`
	NoUnusedParameters     *bool    `json:"noUnusedParameters,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownOptions lists the JSON keys modelled by CompilerOptions.
var knownOptions = map[string]bool{
	"strict": true, "baseUrl": true, "paths": true, "typeRoots": true,
	"types": true, "jsx": true, "jsxFactory": true, "target": true,
	"module": true, "moduleResolution": true, "lib": true,
	"declaration": true, "emitDeclarationOnly": true, "noEmit": true,
	"noEmitOnError": true, "allowNonTsExtensions": true,
	"experimentalDecorators": true, "noImplicitAny": true,
	"noUnusedLocals": true, "noUnusedParameters": true,
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// IsTrue reports whether an optional flag is set and true.
func IsTrue(v *bool) bool {
	return v != nil && *v
}

// AliasRules returns the paths configuration as an alias rule set.
func (o *CompilerOptions) AliasRules() alias.Rules {
	if o == nil {
		return alias.Rules{}
	}
	return alias.Rules{BaseURL: o.BaseURL, Paths: []alias.Rule(o.Paths)}
}

// Clone returns a deep copy of o.
func (o *CompilerOptions) Clone() *CompilerOptions {
	if o == nil {
		return &CompilerOptions{}
	}
	c := *o
	c.Paths = make(PathMap, len(o.Paths))
	for i, rule := range o.Paths {
		c.Paths[i] = alias.Rule{Pattern: rule.Pattern, Replacements: append([]string(nil), rule.Replacements...)}
	}
	c.TypeRoots = append([]string(nil), o.TypeRoots...)
	c.Types = append([]string(nil), o.Types...)
	c.Lib = append([]string(nil), o.Lib...)
	if o.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// ForceDeclarationOutput turns on declaration-only emission and suppresses
// noEmit, whatever the caller asked for.
func (o *CompilerOptions) ForceDeclarationOutput() {
	o.Declaration = Bool(true)
	o.EmitDeclarationOnly = Bool(true)
	o.NoEmit = nil
	delete(o.Extra, "noEmit")
}

// WithEmitDefaults returns a copy of opts with the settings the command line
// tool always applies. A nil opts means no tsconfig.json was found, in which
// case strict mode is off.
func WithEmitDefaults(opts *CompilerOptions) *CompilerOptions {
	var out *CompilerOptions
	if opts == nil {
		out = &CompilerOptions{Strict: Bool(false)}
	} else {
		out = opts.Clone()
	}

	out.AllowNonTsExtensions = Bool(true)
	out.ExperimentalDecorators = Bool(true)
	out.NoImplicitAny = Bool(false)
	out.NoUnusedLocals = Bool(false)
	out.NoUnusedParameters = Bool(false)
	out.NoEmitOnError = Bool(false)
	out.ForceDeclarationOutput()
	return out
}

// MarshalJSON writes modelled and pass-through options as one object.
func (o CompilerOptions) MarshalJSON() ([]byte, error) {
	type plain CompilerOptions
	data, err := json.Marshal(plain(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return data, nil
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range o.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads modelled options and keeps the rest in Extra.
func (o *CompilerOptions) UnmarshalJSON(data []byte) error {
	type plain CompilerOptions
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if knownOptions[key] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}

	*o = CompilerOptions(p)
	return nil
}

// PathMap is the "paths" option. JSON object key order is preserved because
// the first matching pattern wins.
type PathMap []alias.Rule

// MarshalJSON writes the rules as an object in rule order.
func (p PathMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rule.Pattern)
		if err != nil {
			return nil, err
		}
		replacements := rule.Replacements
		if replacements == nil {
			replacements = []string{}
		}
		value, err := json.Marshal(replacements)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of pattern to replacement list, keeping the
// declaration order of the keys.
func (p *PathMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("paths must be an object")
	}

	rules := make(PathMap, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		pattern, ok := tok.(string)
		if !ok {
			return fmt.Errorf("paths key must be a string")
		}
		var replacements []string
		if err := dec.Decode(&replacements); err != nil {
			return fmt.Errorf("paths[%q]: %w", pattern, err)
		}
		rules = append(rules, alias.Rule{Pattern: pattern, Replacements: replacements})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = rules
	return nil
}

// ExtraKeys returns the sorted pass-through option names.
func (o *CompilerOptions) ExtraKeys() []string {
	keys := make([]string, 0, len(o.Extra))
	for key := range o.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
