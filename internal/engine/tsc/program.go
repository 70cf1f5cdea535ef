package tsc

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/identity"
)

// program is the set of host files one compiler run needs.
type program struct {
	// files maps file names to their text.
	files map[string]string
	// aliases maps non-relative container specifiers to the file the host
	// resolved them to. The compiler cannot resolve those on its own.
	aliases map[string]string
}

var (
	moduleSpecifierPattern = regexp.MustCompile(
		`(?m)(?:^\s*import\s+(?:type\s+)?(?:[^'"]*?\s+from\s+)?|^\s*export\s+(?:type\s+)?[^'"]*?\s+from\s+|\bimport\s*\(\s*)(['"])([^'"\n]+)['"]`)
	scriptExtPattern = regexp.MustCompile(`\.(?:d\.ts|tsx?|jsx?)$`)
)

// collect walks the import graph from the host's root files and returns
// every file the host can supply. Resolution goes through the host so that
// container imports reach the registry.
func (e *Engine) collect() *program {
	p := &program{
		files:   make(map[string]string),
		aliases: make(map[string]string),
	}

	queue := append([]string(nil), e.host.ScriptFileNames()...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, seen := p.files[name]; seen {
			continue
		}

		text, ok := e.host.ScriptSnapshot(name)
		if !ok {
			continue
		}
		p.files[name] = text

		specifiers := scanSpecifiers(text)
		if len(specifiers) == 0 {
			continue
		}

		resolved := e.host.ResolveModuleNames(specifiers, name)
		for i, module := range resolved {
			if module == nil || module.IsExternalLibraryImport || i >= len(specifiers) {
				continue
			}
			specifier := specifiers[i]
			if identity.IsContainerFile(specifier) && !isRelative(specifier) {
				p.aliases[specifier] = module.ResolvedFileName
			}
			queue = append(queue, module.ResolvedFileName)
		}
	}
	return p
}

// scanSpecifiers returns the distinct module specifiers of import and
// re-export declarations in text, in order of appearance.
func scanSpecifiers(text string) []string {
	seen := make(map[string]bool)
	specifiers := make([]string, 0)
	for _, m := range moduleSpecifierPattern.FindAllStringSubmatch(text, -1) {
		specifier := m[2]
		if !seen[specifier] {
			seen[specifier] = true
			specifiers = append(specifiers, specifier)
		}
	}
	return specifiers
}

func isRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || filepath.IsAbs(specifier)
}

// isEmittable reports whether the compiler writes a declaration for name.
func isEmittable(name string) bool {
	return !strings.HasSuffix(name, identity.DeclarationExt) && scriptExtPattern.MatchString(name)
}

// declarationPath returns where the compiler writes the declaration of name.
// "A.vue.tsx" produces "A.vue.d.ts".
func declarationPath(name string) string {
	return scriptExtPattern.ReplaceAllString(name, "") + identity.DeclarationExt
}

// ResolveModuleName resolves relative specifiers and packages installed in
// the working directory's node_modules.
func (e *Engine) ResolveModuleName(name, containingFile string) (*engine.ResolvedModule, bool) {
	if isRelative(name) {
		base := name
		if !filepath.IsAbs(base) {
			base = filepath.Join(filepath.Dir(containingFile), name)
		}
		if file, ok := e.probe(base); ok {
			return &engine.ResolvedModule{ResolvedFileName: file, Extension: scriptExtPattern.FindString(file)}, true
		}
		return nil, false
	}

	modules := filepath.Join(e.host.CurrentDirectory(), "node_modules")
	for _, base := range []string{
		filepath.Join(modules, name),
		filepath.Join(modules, "@types", typesPackageName(name)),
	} {
		if file, ok := e.probePackage(base); ok {
			return &engine.ResolvedModule{
				ResolvedFileName:        file,
				Extension:               scriptExtPattern.FindString(file),
				IsExternalLibraryImport: true,
			}, true
		}
	}
	return nil, false
}

// typesPackageName maps "@scope/pkg" to the DefinitelyTyped name "scope__pkg".
func typesPackageName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name[1:], "/", "__", 1)
	}
	return name
}

func (e *Engine) probe(base string) (string, bool) {
	candidates := []string{base}
	for _, ext := range []string{".ts", ".tsx", ".d.ts", ".js", ".jsx"} {
		candidates = append(candidates, base+ext)
	}
	candidates = append(candidates,
		filepath.Join(base, "index.ts"),
		filepath.Join(base, "index.tsx"),
		filepath.Join(base, "index.d.ts"))

	for _, candidate := range candidates {
		if !scriptExtPattern.MatchString(candidate) {
			continue
		}
		if e.fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (e *Engine) fileExists(path string) bool {
	info, err := e.config.FS.Stat(path)
	return err == nil && !info.IsDir()
}

// probePackage resolves a package directory through the "types" or
// "typings" field of its package.json, falling back to index.d.ts.
func (e *Engine) probePackage(base string) (string, bool) {
	if data, err := afero.ReadFile(e.config.FS, filepath.Join(base, "package.json")); err == nil {
		for _, field := range []string{"types", "typings"} {
			if entry := gjson.GetBytes(data, field); entry.Exists() && entry.String() != "" {
				candidate := filepath.Join(base, entry.String())
				if e.fileExists(candidate) {
					return candidate, true
				}
			}
		}
	}

	for _, candidate := range []string{filepath.Join(base, "index.d.ts"), base + ".d.ts"} {
		if e.fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
