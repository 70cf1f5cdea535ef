package tsc

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/alias"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// ProjectFile is the name of the generated project file.
const ProjectFile = "tsconfig.json"

// droppedOptions would redirect or suppress the declarations the engine
// reads back, or are not understood by the command line compiler.
// noEmitOnError is applied per file by EmitOutput: the command line compiler
// would withhold every output file when any one file has an error.
var droppedOptions = []string{
	"noEmit", "noEmitOnError", "outDir", "outFile", "out", "declarationDir",
	"rootDir", "composite", "incremental", "tsBuildInfoFile", "sourceMap",
	"declarationMap", "inlineSourceMap", "allowNonTsExtensions",
}

// workspace is a private directory mirroring host files at their absolute
// paths, so "/proj/src/A.vue.tsx" lives at "<root>/proj/src/A.vue.tsx".
type workspace struct {
	root string
	fs   afero.Fs
}

func (w *workspace) mirror(name string) string {
	return filepath.Join(w.root, name)
}

// write materializes p and its project file, returning the project path.
func (w *workspace) write(p *program, opts *tsconfig.CompilerOptions, workingDir string) (string, error) {
	files := make([]string, 0, len(p.files))
	for name, text := range p.files {
		if err := w.fs.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return "", fmt.Errorf("failed to create workspace directory: %w", err)
		}
		if err := afero.WriteFile(w.fs, name, []byte(text), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
		files = append(files, w.mirror(name))
	}
	sort.Strings(files)

	options, err := w.compilerOptions(p, opts, workingDir)
	if err != nil {
		return "", err
	}

	project := struct {
		CompilerOptions map[string]json.RawMessage `json:"compilerOptions"`
		Files           []string                   `json:"files"`
	}{options, files}

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode project file: %w", err)
	}
	if err := afero.WriteFile(w.fs, ProjectFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write project file: %w", err)
	}
	return w.mirror(ProjectFile), nil
}

// compilerOptions returns the user's options rewritten for the workspace.
func (w *workspace) compilerOptions(p *program, opts *tsconfig.CompilerOptions, workingDir string) (map[string]json.RawMessage, error) {
	options := make(map[string]json.RawMessage)
	if opts != nil {
		data, err := json.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to encode compiler options: %w", err)
		}
		if err := json.Unmarshal(data, &options); err != nil {
			return nil, fmt.Errorf("failed to encode compiler options: %w", err)
		}
	} else {
		opts = &tsconfig.CompilerOptions{}
	}

	for _, key := range droppedOptions {
		delete(options, key)
	}

	set := func(key string, value interface{}) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		options[key] = data
		return nil
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = workingDir
	}

	typeRoots := make([]string, 0, len(opts.TypeRoots))
	for _, root := range opts.TypeRoots {
		typeRoots = append(typeRoots, w.mirror(root))
	}
	if len(typeRoots) == 0 {
		typeRoots = append(typeRoots, filepath.Join(workingDir, "node_modules", "@types"))
	}

	for key, value := range map[string]interface{}{
		"declaration":         true,
		"emitDeclarationOnly": true,
		"baseUrl":             w.mirror(baseURL),
		"typeRoots":           typeRoots,
		"paths":               w.paths(p, opts, baseURL, workingDir),
	} {
		if err := set(key, value); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// paths builds the "paths" option for the workspace. Container imports the
// host resolved through aliases are pinned to their mirrored files first.
// User rules follow in their original order, each trying the mirror before
// the real project. Anything else falls back to the project's node_modules.
func (w *workspace) paths(p *program, opts *tsconfig.CompilerOptions, baseURL, workingDir string) tsconfig.PathMap {
	specifiers := make([]string, 0, len(p.aliases))
	for specifier := range p.aliases {
		specifiers = append(specifiers, specifier)
	}
	sort.Strings(specifiers)

	rules := make(tsconfig.PathMap, 0, len(specifiers)+len(opts.Paths)+1)
	for _, specifier := range specifiers {
		rules = append(rules, alias.Rule{
			Pattern:      specifier,
			Replacements: []string{w.mirror(p.aliases[specifier])},
		})
	}

	hasCatchAll := false
	for _, rule := range opts.Paths {
		if rule.Pattern == "*" {
			hasCatchAll = true
		}
		replacements := make([]string, 0, 2*len(rule.Replacements))
		for _, replacement := range rule.Replacements {
			target := replacement
			if !filepath.IsAbs(target) {
				target = filepath.Join(baseURL, replacement)
			}
			replacements = append(replacements, w.mirror(target), target)
		}
		rules = append(rules, alias.Rule{Pattern: rule.Pattern, Replacements: replacements})
	}

	if !hasCatchAll {
		rules = append(rules, alias.Rule{Pattern: "*", Replacements: []string{
			filepath.Join(workingDir, "node_modules", "*"),
			filepath.Join(workingDir, "node_modules", "@types", "*"),
		}})
	}
	return rules
}
