// Package enginetest provides a small deterministic engine for tests.
//
// It understands a subset of TypeScript that is enough to exercise the
// compilation host: single-line variable exports with an optional type
// annotation and literal initializer, default object exports, type and
// interface exports, and import declarations. Type mismatches between an
// annotation and a literal are reported as TS2322 and unresolved imports as
// TS2307, with the same wording the real compiler uses.
package enginetest

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// LibDir is where DefaultLibFilePath places the default library.
const LibDir = "/enginetest/lib"

var (
	exportVarPattern = regexp.MustCompile(
		`^export\s+(declare\s+)?(const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::\s*([^=;]+?))?\s*(?:=\s*(.+?))?\s*;?\s*$`)
	exportDefaultObjectPattern = regexp.MustCompile(`^export\s+default\s+\{\s*\}\s*;?\s*$`)
	exportTypePattern          = regexp.MustCompile(`^export\s+(?:declare\s+)?(?:type|interface)\s`)
	importPattern              = regexp.MustCompile(`^import\s+(?:(?:type\s+)?[^'"]+\s+from\s+)?(['"])([^'"]+)['"]`)
	scriptExtPattern           = regexp.MustCompile(`\.(?:d\.ts|tsx?|jsx?)$`)
)

var validJSX = map[string]bool{
	"preserve": true, "react": true, "react-native": true, "react-jsx": true, "react-jsxdev": true,
}

// Engine is an in-memory engine.Service.
type Engine struct {
	host engine.Host
	fs   afero.Fs

	mutex        sync.Mutex
	results      map[string]*analysis
	computations atomic.Int64
	closed       bool
}

type analysis struct {
	declaration string
	diagnostics []engine.Diagnostic
}

// NewFactory returns a factory for engines that probe fs when resolving
// relative module names.
func NewFactory(fs afero.Fs) engine.Factory {
	return func(host engine.Host) (engine.Service, error) {
		return New(host, fs), nil
	}
}

// New creates an engine for host.
func New(host engine.Host, fs afero.Fs) *Engine {
	return &Engine{
		host:    host,
		fs:      fs,
		results: make(map[string]*analysis),
	}
}

// Computations returns how many file analyses were not served from cache.
func (e *Engine) Computations() int {
	return int(e.computations.Load())
}

// EmitOutput implements engine.Service.
func (e *Engine) EmitOutput(ctx context.Context, fileName string, emitOnlyDts, forceDts bool) (*engine.EmitOutput, error) {
	result, err := e.analyse(ctx, fileName)
	if err != nil {
		return nil, err
	}

	opts := e.host.CompilationSettings()
	if opts != nil && tsconfig.IsTrue(opts.NoEmitOnError) && len(result.diagnostics) > 0 {
		return &engine.EmitOutput{EmitSkipped: true}, nil
	}

	out := &engine.EmitOutput{}
	base := scriptExtPattern.ReplaceAllString(fileName, "")
	if !emitOnlyDts {
		out.OutputFiles = append(out.OutputFiles, engine.OutputFile{Name: base + ".js"})
	}
	if emitOnlyDts || forceDts || (opts != nil && tsconfig.IsTrue(opts.Declaration)) {
		out.OutputFiles = append(out.OutputFiles, engine.OutputFile{
			Name: base + ".d.ts",
			Text: result.declaration,
		})
	}
	return out, nil
}

// OptionsDiagnostics implements engine.Service.
func (e *Engine) OptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	if err := e.check(ctx); err != nil {
		return nil, err
	}

	opts := e.host.CompilationSettings()
	if opts == nil || opts.JSX == "" || validJSX[opts.JSX] {
		return nil, nil
	}
	return []engine.Diagnostic{{
		Category: engine.CategoryError,
		Code:     6046,
		Message:  "Argument for '--jsx' option must be: 'preserve', 'react-native', 'react', 'react-jsx', 'react-jsxdev'.",
	}}, nil
}

// Diagnostics implements engine.Service.
func (e *Engine) Diagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	result, err := e.analyse(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return append([]engine.Diagnostic(nil), result.diagnostics...), nil
}

// ResolveModuleName resolves relative specifiers against the host scripts
// and the filesystem. Package imports are not supported.
func (e *Engine) ResolveModuleName(name, containingFile string) (*engine.ResolvedModule, bool) {
	if !strings.HasPrefix(name, "./") && !strings.HasPrefix(name, "../") && !filepath.IsAbs(name) {
		return nil, false
	}

	base := name
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(containingFile), name)
	}

	candidates := []string{base}
	for _, ext := range []string{".ts", ".tsx", ".d.ts", ".js", ".jsx"} {
		candidates = append(candidates, base+ext)
	}
	candidates = append(candidates, filepath.Join(base, "index.ts"), filepath.Join(base, "index.d.ts"))

	for _, candidate := range candidates {
		ext := scriptExtPattern.FindString(candidate)
		if ext == "" {
			continue
		}
		if e.exists(candidate) {
			return &engine.ResolvedModule{ResolvedFileName: candidate, Extension: ext}, true
		}
	}
	return nil, false
}

// DefaultLibFilePath implements engine.Service.
func (e *Engine) DefaultLibFilePath(opts *tsconfig.CompilerOptions) string {
	return filepath.Join(LibDir, engine.DefaultLibFileName(opts))
}

// Close implements engine.Service.
func (e *Engine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.closed = true
	return nil
}

func (e *Engine) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.closed {
		return fmt.Errorf("engine is closed")
	}
	return nil
}

func (e *Engine) exists(path string) bool {
	if _, ok := e.host.ScriptSnapshot(path); ok {
		return true
	}
	if e.fs == nil {
		return false
	}
	info, err := e.fs.Stat(path)
	return err == nil && !info.IsDir()
}

type importRef struct {
	specifier string
	line      int
	column    int
}

// analyse returns the declaration and diagnostics of fileName, reusing the
// previous result while neither the file nor its imports changed.
func (e *Engine) analyse(ctx context.Context, fileName string) (*analysis, error) {
	if err := e.check(ctx); err != nil {
		return nil, err
	}

	text, ok := e.host.ScriptSnapshot(fileName)
	if !ok {
		return &analysis{diagnostics: []engine.Diagnostic{{
			Category: engine.CategoryError,
			Code:     6053,
			Message:  fmt.Sprintf("File '%s' not found.", fileName),
		}}}, nil
	}

	lines := strings.Split(text, "\n")
	imports := scanImports(lines)
	specifiers := make([]string, len(imports))
	for i, ref := range imports {
		specifiers[i] = ref.specifier
	}

	var resolved []*engine.ResolvedModule
	if len(specifiers) > 0 {
		resolved = e.host.ResolveModuleNames(specifiers, fileName)
	}

	key := e.cacheKey(fileName, resolved)
	e.mutex.Lock()
	cached, hit := e.results[key]
	e.mutex.Unlock()
	if hit {
		return cached, nil
	}

	e.computations.Add(1)
	result := &analysis{}
	for i, ref := range imports {
		var module *engine.ResolvedModule
		if i < len(resolved) {
			module = resolved[i]
		}
		if module == nil || !e.exists(module.ResolvedFileName) {
			result.diagnostics = append(result.diagnostics, engine.Diagnostic{
				File:        fileName,
				Line:        ref.line,
				Column:      ref.column,
				HasPosition: true,
				Category:    engine.CategoryError,
				Code:        2307,
				Message:     fmt.Sprintf("Cannot find module '%s' or its corresponding type declarations.", ref.specifier),
			})
		}
	}

	declarations, diagnostics := declare(fileName, lines)
	result.diagnostics = append(result.diagnostics, diagnostics...)
	if len(declarations) == 0 {
		declarations = []string{"export {};"}
	}
	result.declaration = strings.Join(declarations, "\n") + "\n"

	e.mutex.Lock()
	e.results[key] = result
	e.mutex.Unlock()
	return result, nil
}

func (e *Engine) cacheKey(fileName string, resolved []*engine.ResolvedModule) string {
	var sb strings.Builder
	version, _ := e.host.ScriptVersion(fileName)
	sb.WriteString(fileName + "@" + version)
	for _, module := range resolved {
		sb.WriteByte('|')
		if module == nil {
			continue
		}
		v, _ := e.host.ScriptVersion(module.ResolvedFileName)
		sb.WriteString(module.ResolvedFileName + "@" + v)
	}
	return sb.String()
}

func scanImports(lines []string) []importRef {
	refs := make([]importRef, 0)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		m := importPattern.FindStringSubmatchIndex(trimmed)
		if m == nil {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		refs = append(refs, importRef{
			specifier: trimmed[m[4]:m[5]],
			line:      i,
			column:    indent + m[2],
		})
	}
	return refs
}

// declare produces declaration lines for the exports found in lines.
func declare(fileName string, lines []string) ([]string, []engine.Diagnostic) {
	declarations := make([]string, 0)
	diagnostics := make([]engine.Diagnostic, 0)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		switch {
		case exportDefaultObjectPattern.MatchString(trimmed):
			declarations = append(declarations, "declare const _default: {};", "export default _default;")

		case exportTypePattern.MatchString(trimmed):
			declarations = append(declarations, trimmed)

		case exportVarPattern.MatchString(trimmed):
			m := exportVarPattern.FindStringSubmatchIndex(trimmed)
			kind := trimmed[m[4]:m[5]]
			name := trimmed[m[6]:m[7]]
			annotation := group(trimmed, m, 4)
			initializer := group(trimmed, m, 5)

			literalType, literal := literalTypeOf(initializer)
			typ := annotation
			switch {
			case annotation != "" && literalType != "" && literalType != annotation && annotation != "any" && annotation != "unknown":
				diagnostics = append(diagnostics, engine.Diagnostic{
					File:        fileName,
					Line:        i,
					Column:      indent + m[6],
					HasPosition: true,
					Category:    engine.CategoryError,
					Code:        2322,
					Message:     fmt.Sprintf("Type '%s' is not assignable to type '%s'.", literalType, annotation),
				})
			case annotation == "" && kind == "const" && literal != "":
				declarations = append(declarations, fmt.Sprintf("export declare const %s = %s;", name, literal))
				continue
			case annotation == "" && literalType != "":
				typ = literalType
			case annotation == "":
				typ = "any"
			}
			declarations = append(declarations, fmt.Sprintf("export declare %s %s: %s;", kind, name, typ))
		}
	}
	return declarations, diagnostics
}

func group(s string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return strings.TrimSpace(s[m[2*n]:m[2*n+1]])
}

// literalTypeOf returns the widened type of a literal initializer and the
// literal itself when it may appear in a const declaration.
func literalTypeOf(expr string) (string, string) {
	switch {
	case expr == "":
		return "", ""
	case expr == "true" || expr == "false":
		return "boolean", expr
	case len(expr) >= 2 && (expr[0] == '"' || expr[0] == '\'') && expr[len(expr)-1] == expr[0]:
		return "string", `"` + expr[1:len(expr)-1] + `"`
	case len(expr) >= 2 && expr[0] == '`' && expr[len(expr)-1] == '`':
		return "string", ""
	}
	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return "number", expr
	}
	return "", ""
}
