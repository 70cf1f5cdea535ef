// Package alias resolves import specifiers against tsconfig "paths" rules.
package alias

import (
	"path/filepath"
	"strings"
)

// Rule maps a pattern such as "@/*" to replacement templates such as
// "src/*". Only the first replacement is used for resolution.
type Rule struct {
	Pattern      string
	Replacements []string
}

// Rules is an ordered rule set anchored at BaseURL. Order is significant:
// the first matching rule wins.
type Rules struct {
	BaseURL string
	Paths   []Rule
}

// Empty reports whether resolution should skip alias matching entirely.
func (r Rules) Empty() bool {
	return r.BaseURL == "" || len(r.Paths) == 0
}

// Match tests specifier against pattern. A single "*" in the pattern
// matches any sequence of characters, including path separators; the
// matched portion is returned. Patterns with more than one "*" are invalid
// in tsconfig "paths" and never match.
func Match(pattern, specifier string) (string, bool) {
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return "", pattern == specifier
	}
	if strings.Count(pattern, "*") > 1 {
		return "", false
	}

	prefix, suffix := pattern[:star], pattern[star+1:]
	if len(specifier) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}
	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}

// Resolve maps specifier, imported from containingFile, to a file path.
//
// With no rules configured, or when no rule matches, the specifier is
// resolved relative to the directory of containingFile. The result is only
// as absolute as containingFile: Resolve never consults the process working
// directory.
func Resolve(rules Rules, containingFile, specifier string) string {
	if rules.Empty() {
		return relative(containingFile, specifier)
	}

	for _, rule := range rules.Paths {
		captured, ok := Match(rule.Pattern, specifier)
		if !ok || len(rule.Replacements) == 0 {
			continue
		}
		target := strings.Replace(rule.Replacements[0], "*", captured, 1)
		if filepath.IsAbs(target) {
			return filepath.Clean(target)
		}
		return filepath.Join(rules.BaseURL, target)
	}

	return relative(containingFile, specifier)
}

func relative(containingFile, specifier string) string {
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier)
	}
	return filepath.Join(filepath.Dir(containingFile), specifier)
}
