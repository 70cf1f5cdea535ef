// Package service adapts the virtual file registry to a type-checking engine
// and turns engine output into a per-file declaration result.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/alias"
	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/registry"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// Environment carries everything the service would otherwise read from the
// process: the working directory, the filesystem and the engine.
type Environment struct {
	// WorkingDir defaults to the process working directory.
	WorkingDir string
	// FS defaults to the OS filesystem.
	FS afero.Fs
	// Engine creates the type-checking engine. Required.
	Engine engine.Factory
	// DefaultLibPath overrides the engine's default library location.
	DefaultLibPath func(*tsconfig.CompilerOptions) string
	Logger         logging.Logger
}

// Result is the outcome of emitting one file. Declaration is nil when there
// was nothing to emit or when Errors is non-empty.
type Result struct {
	Declaration *string
	Errors      []string
}

// OK reports whether a declaration was produced.
func (r Result) OK() bool {
	return r.Declaration != nil
}

// LanguageService emits declarations for container files and the scripts
// they depend on.
type LanguageService struct {
	registry *registry.Registry
	options  *tsconfig.CompilerOptions
	rules    alias.Rules
	env      Environment
	engine   engine.Service
	logger   logging.Logger
}

// New creates a service over roots, which typically holds the ambient
// declaration files of the project followed by the containers to emit.
// Every root is loaded before New returns.
//
// The compiler options are passed to the engine unchanged, except that
// declaration-only output is always on and noEmit is always off.
func New(roots []string, opts *tsconfig.CompilerOptions, env Environment) (*LanguageService, error) {
	if env.Engine == nil {
		return nil, fmt.Errorf("no engine configured")
	}
	if env.FS == nil {
		env.FS = afero.NewOsFs()
	}
	if env.Logger == nil {
		env.Logger = logging.NewNopLogger()
	}
	if env.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		env.WorkingDir = wd
	}

	options := opts.Clone()
	options.ForceDeclarationOutput()

	s := &LanguageService{
		registry: registry.New(env.FS),
		options:  options,
		rules:    options.AliasRules(),
		env:      env,
		logger:   env.Logger.WithComponent("service"),
	}

	for _, root := range roots {
		s.registry.UpdateFile(root)
	}

	svc, err := env.Engine(&host{service: s})
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	s.engine = svc

	s.logger.Debug(context.Background(), "Language service created",
		"roots", len(roots), "files", s.registry.Len())
	return s, nil
}

// UpdateFile reloads name from disk.
func (s *LanguageService) UpdateFile(name string) {
	s.registry.UpdateFile(name)
}

// HostContainers returns the containers whose code lives in name.
func (s *LanguageService) HostContainers(name string) []string {
	return s.registry.HostContainers(name)
}

// Registry exposes the underlying file registry.
func (s *LanguageService) Registry() *registry.Registry {
	return s.registry
}

// Options returns the compiler options handed to the engine.
func (s *LanguageService) Options() *tsconfig.CompilerOptions {
	return s.options.Clone()
}

// Close releases the engine.
func (s *LanguageService) Close() error {
	return s.engine.Close()
}

// Emit produces the declaration for name. Unknown, missing and empty files
// yield an empty result without errors. Emit never fails: engine failures are
// reported in Errors.
func (s *LanguageService) Emit(ctx context.Context, name string) Result {
	name = identity.Normalize(name)
	if !s.registry.CanEmit(name) {
		return Result{Errors: []string{}}
	}

	perf := logging.StartOperation(s.logger, "emit")
	defer perf.End(ctx, "file", name)

	output, err := s.engine.EmitOutput(ctx, name, true, true)
	if err != nil {
		return failure(err)
	}

	diagnostics, err := s.diagnostics(ctx, name)
	if err != nil {
		return failure(err)
	}

	if len(diagnostics) == 0 && !output.EmitSkipped {
		if file, ok := output.Declaration(); ok {
			text := file.Text
			return Result{Declaration: &text, Errors: []string{}}
		}
		return Result{Errors: []string{fmt.Sprintf("no declaration was emitted for %s", name)}}
	}

	errs := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		errs = append(errs, FormatDiagnostic(d))
	}
	return Result{Errors: errs}
}

// diagnostics returns the option diagnostics followed by those of name.
func (s *LanguageService) diagnostics(ctx context.Context, name string) ([]engine.Diagnostic, error) {
	optionDiagnostics, err := s.engine.OptionsDiagnostics(ctx)
	if err != nil {
		return nil, err
	}
	fileDiagnostics, err := s.engine.Diagnostics(ctx, name)
	if err != nil {
		return nil, err
	}
	return append(optionDiagnostics, fileDiagnostics...), nil
}

// FormatDiagnostic renders d as "[line,column] message" with one-based
// positions, or as the bare message when d has no position.
func FormatDiagnostic(d engine.Diagnostic) string {
	if !d.HasPosition {
		return d.Message
	}
	return fmt.Sprintf("[%d,%d] %s", d.Line+1, d.Column+1, d.Message)
}

func failure(err error) Result {
	return Result{Errors: []string{err.Error()}}
}

// resolveContainer maps a container import to the compiler-facing identity of
// the imported container.
func (s *LanguageService) resolveContainer(specifier, containingFile string) string {
	resolved := alias.Resolve(s.rules, containingFile, specifier)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(s.env.WorkingDir, resolved)
	}
	return identity.Normalize(resolved)
}
