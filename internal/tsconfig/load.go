package tsconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tailscale/hujson"
)

// FileName is the name of the TypeScript project file.
const FileName = "tsconfig.json"

// maxExtendsDepth bounds "extends" chains so a cycle cannot recurse forever.
const maxExtendsDepth = 16

// Find walks from dir up to the filesystem root and returns the path of the
// first tsconfig.json it meets.
func Find(fs afero.Fs, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads the compilerOptions of the tsconfig.json at path. Comments and
// trailing commas are accepted. A relative "extends" is followed and the
// child's options override the parent's. baseUrl and typeRoots are made
// absolute against the directory of the file that declares them.
func Load(fs afero.Fs, path string) (*CompilerOptions, error) {
	raw, err := loadRaw(fs, path, 0)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding compiler options: %w", err)
	}

	opts := &CompilerOptions{}
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("decoding compiler options in %s: %w", path, err)
	}
	return opts, nil
}

// LoadFrom finds and loads the tsconfig.json governing dir. It returns nil
// options when no file exists.
func LoadFrom(fs afero.Fs, dir string) (*CompilerOptions, string, error) {
	path, ok := Find(fs, dir)
	if !ok {
		return nil, "", nil
	}
	opts, err := Load(fs, path)
	if err != nil {
		return nil, path, err
	}
	return opts, path, nil
}

type projectFile struct {
	Extends         string                     `json:"extends"`
	CompilerOptions map[string]json.RawMessage `json:"compilerOptions"`
}

// loadRaw returns the merged compilerOptions object of path and its parents.
func loadRaw(fs afero.Fs, path string, depth int) (map[string]json.RawMessage, error) {
	if depth > maxExtendsDepth {
		return nil, fmt.Errorf("%s: extends chain is too deep", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data, err = hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var project projectFile
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	options := project.CompilerOptions
	if options == nil {
		options = make(map[string]json.RawMessage)
	}
	if err := absolutize(options, dir); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Package-style extends ("@tsconfig/node18") would need node_modules
	// resolution; only file paths are followed.
	if !isRelative(project.Extends) {
		return options, nil
	}

	parentPath := filepath.Join(dir, project.Extends)
	if !strings.HasSuffix(parentPath, ".json") {
		parentPath += ".json"
	}
	merged, err := loadRaw(fs, parentPath, depth+1)
	if err != nil {
		return nil, err
	}
	for key, value := range options {
		merged[key] = value
	}
	return merged, nil
}

func isRelative(p string) bool {
	return strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || filepath.IsAbs(p)
}

// absolutize rewrites baseUrl and typeRoots relative to dir.
func absolutize(options map[string]json.RawMessage, dir string) error {
	if value, ok := options["baseUrl"]; ok {
		var baseURL string
		if err := json.Unmarshal(value, &baseURL); err != nil {
			return fmt.Errorf("baseUrl: %w", err)
		}
		encoded, err := json.Marshal(resolveAgainst(dir, baseURL))
		if err != nil {
			return err
		}
		options["baseUrl"] = encoded
	}

	if value, ok := options["typeRoots"]; ok {
		var roots []string
		if err := json.Unmarshal(value, &roots); err != nil {
			return fmt.Errorf("typeRoots: %w", err)
		}
		for i, root := range roots {
			roots[i] = resolveAgainst(dir, root)
		}
		encoded, err := json.Marshal(roots)
		if err != nil {
			return err
		}
		options["typeRoots"] = encoded
	}
	return nil
}

func resolveAgainst(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
