// Package tsc implements the engine contract by running the TypeScript
// compiler as a child process.
//
// For every distinct state of the host's files the engine copies the
// program into a private workspace, writes a generated tsconfig.json that
// forces declaration-only output, runs "tsc -p" once, and keeps the parsed
// diagnostics and declarations in an LRU cache. Emit and diagnostic requests
// for an unchanged program are served from that cache.
package tsc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/cache"
	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/tsconfig"
	"github.com/conneroisu/vuedts/internal/validation"
)

// allowedCommands are the executables the engine agrees to run.
var allowedCommands = map[string]bool{
	"tsc": true,
}

// Config configures the engine.
type Config struct {
	// Command is the compiler executable. When empty, the project's
	// node_modules/.bin/tsc is used, then tsc from PATH.
	Command string
	// CacheSize is the number of program states kept. Defaults to 64.
	CacheSize int
	// FS is used to probe module files. Defaults to the OS filesystem.
	FS afero.Fs
	// TempDir is where workspaces are created. Defaults to os.TempDir.
	TempDir string
	Logger  logging.Logger
}

// Engine runs tsc for a single host.
type Engine struct {
	host    engine.Host
	config  Config
	command string
	results *cache.LRU[*result]
	logger  logging.Logger

	// runMutex makes concurrent requests for the same program state wait for
	// one compiler run instead of starting their own.
	runMutex sync.Mutex
}

// result is everything one compiler run produced.
type result struct {
	declarations map[string]string
	diagnostics  map[string][]engine.Diagnostic
	global       []engine.Diagnostic
}

// NewFactory returns a factory creating engines with cfg.
func NewFactory(cfg Config) engine.Factory {
	return func(host engine.Host) (engine.Service, error) {
		return New(host, cfg)
	}
}

// New creates an engine for host. It fails when no compiler can be found.
func New(host engine.Host, cfg Config) (*Engine, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	command, err := locateCompiler(cfg.FS, cfg.Command, host.CurrentDirectory())
	if err != nil {
		return nil, err
	}

	return &Engine{
		host:    host,
		config:  cfg,
		command: command,
		results: cache.NewLRU[*result](cfg.CacheSize, 0),
		logger:  cfg.Logger.WithComponent("tsc"),
	}, nil
}

// locateCompiler resolves the compiler executable.
func locateCompiler(fs afero.Fs, command, workingDir string) (string, error) {
	if command == "" {
		local := filepath.Join(workingDir, "node_modules", ".bin", "tsc")
		if info, err := fs.Stat(local); err == nil && !info.IsDir() {
			command = local
		} else {
			command = "tsc"
		}
	}

	if err := validation.ValidateCommand(command, allowedCommands); err != nil {
		return "", fmt.Errorf("command validation failed: %w", err)
	}

	if filepath.IsAbs(command) {
		return command, nil
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("typescript compiler not found (install the typescript package): %w", err)
	}
	return path, nil
}

// Command returns the compiler executable in use.
func (e *Engine) Command() string {
	return e.command
}

// CacheStats returns statistics of the result cache.
func (e *Engine) CacheStats() cache.Stats {
	return e.results.Stats()
}

// EmitOutput implements engine.Service. The declaration is always produced
// because the generated project forces declaration output. With
// noEmitOnError set, emit is skipped for a file that has diagnostics of its
// own or when the options themselves are in error.
func (e *Engine) EmitOutput(ctx context.Context, fileName string, emitOnlyDts, forceDts bool) (*engine.EmitOutput, error) {
	r, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}

	opts := e.host.CompilationSettings()
	if opts != nil && tsconfig.IsTrue(opts.NoEmitOnError) &&
		(len(r.global) > 0 || len(r.diagnostics[fileName]) > 0) {
		return &engine.EmitOutput{EmitSkipped: true}, nil
	}

	text, ok := r.declarations[fileName]
	if !ok {
		return &engine.EmitOutput{EmitSkipped: true}, nil
	}
	return &engine.EmitOutput{OutputFiles: []engine.OutputFile{{
		Name: declarationPath(fileName),
		Text: text,
	}}}, nil
}

// OptionsDiagnostics implements engine.Service.
func (e *Engine) OptionsDiagnostics(ctx context.Context) ([]engine.Diagnostic, error) {
	r, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}
	return append([]engine.Diagnostic(nil), r.global...), nil
}

// Diagnostics implements engine.Service.
func (e *Engine) Diagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	r, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}
	return append([]engine.Diagnostic(nil), r.diagnostics[fileName]...), nil
}

// DefaultLibFilePath implements engine.Service. The library directory sits
// next to the bin directory of the typescript package the compiler belongs to.
func (e *Engine) DefaultLibFilePath(opts *tsconfig.CompilerOptions) string {
	libDir := filepath.Join(e.host.CurrentDirectory(), "node_modules", "typescript", "lib")
	if resolved, err := filepath.EvalSymlinks(e.command); err == nil {
		libDir = filepath.Join(filepath.Dir(filepath.Dir(resolved)), "lib")
	}
	return filepath.Join(libDir, engine.DefaultLibFileName(opts))
}

// Close implements engine.Service.
func (e *Engine) Close() error {
	if e.logger != nil {
		stats := e.CacheStats()
		e.logger.Debug(context.Background(), "Engine closed",
			"runs", stats.Misses,
			"cache_hits", stats.Hits,
			"cache_evictions", stats.Evictions,
			"hit_rate", stats.HitRate())
	}
	e.results.Clear()
	return nil
}

// compile returns the result for the current program state, running the
// compiler when it is not cached.
func (e *Engine) compile(ctx context.Context) (*result, error) {
	program := e.collect()
	key := e.digest(program)

	if r, ok := e.results.Get(key); ok {
		return r, nil
	}

	e.runMutex.Lock()
	defer e.runMutex.Unlock()

	// Another request may have finished the same run while we waited.
	if r, ok := e.results.Get(key); ok {
		return r, nil
	}

	perf := logging.StartOperation(e.logger, "tsc")
	r, err := e.run(ctx, program)
	if err != nil {
		return nil, err
	}
	perf.End(ctx, "files", len(program.files))

	e.results.Set(key, r)
	return r, nil
}

// digest identifies a program state by its file versions and options.
func (e *Engine) digest(p *program) string {
	h := sha256.New()
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		version, _ := e.host.ScriptVersion(name)
		fmt.Fprintf(h, "%s\x00%s\x00", name, version)
	}
	aliases := make([]string, 0, len(p.aliases))
	for specifier, target := range p.aliases {
		aliases = append(aliases, specifier+"\x00"+target)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		fmt.Fprintf(h, "%s\x00", a)
	}

	if opts, err := json.Marshal(e.host.CompilationSettings()); err == nil {
		h.Write(opts)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// run materializes the program, invokes the compiler and collects output.
func (e *Engine) run(ctx context.Context, p *program) (*result, error) {
	dir, err := os.MkdirTemp(e.config.TempDir, "vuedts-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn(ctx, err, "Failed to remove workspace", "dir", dir)
		}
	}()

	ws := &workspace{root: dir, fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}
	projectPath, err := ws.write(p, e.host.CompilationSettings(), e.host.CurrentDirectory())
	if err != nil {
		return nil, err
	}

	args := []string{"-p", projectPath, "--pretty", "false"}
	for _, arg := range args {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Dir = dir
	output, runErr := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("tsc was cancelled: %w", ctx.Err())
	}

	r := &result{
		declarations: make(map[string]string),
		diagnostics:  make(map[string][]engine.Diagnostic),
	}
	parsed := parseDiagnostics(string(output), dir)
	for _, d := range parsed {
		if d.File == "" || d.File == string(filepath.Separator)+ProjectFile {
			d.File, d.HasPosition = "", false
			r.global = append(r.global, d)
			continue
		}
		r.diagnostics[d.File] = append(r.diagnostics[d.File], d)
	}

	// tsc exits non-zero whenever it reports diagnostics; only a run that
	// failed without explaining why is an engine error.
	if runErr != nil && len(parsed) == 0 {
		return nil, fmt.Errorf("tsc failed: %w\nOutput: %s", runErr, output)
	}

	for name := range p.files {
		if !isEmittable(name) {
			continue
		}
		data, err := afero.ReadFile(ws.fs, declarationPath(name))
		if err != nil {
			continue
		}
		r.declarations[name] = string(data)
	}

	e.logger.Debug(ctx, "Compiler finished",
		"diagnostics", len(parsed),
		"declarations", len(r.declarations),
		"elapsed_ms", time.Since(start).Milliseconds())
	return r, nil
}
