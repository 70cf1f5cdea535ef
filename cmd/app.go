package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/vuedts/internal/build"
	"github.com/conneroisu/vuedts/internal/config"
	"github.com/conneroisu/vuedts/internal/console"
	"github.com/conneroisu/vuedts/internal/engine"
	"github.com/conneroisu/vuedts/internal/engine/tsc"
	vuedtserrors "github.com/conneroisu/vuedts/internal/errors"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/scanner"
	"github.com/conneroisu/vuedts/internal/service"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// newEngine builds the engine factory. Tests replace it.
var newEngine = func(cfg *config.Config, fs afero.Fs, logger logging.Logger) engine.Factory {
	return tsc.NewFactory(tsc.Config{
		Command:   cfg.Engine.Command,
		CacheSize: cfg.Engine.CacheSize,
		FS:        fs,
		Logger:    logger,
	})
}

// app holds what every command needs.
type app struct {
	config     *config.Config
	fs         afero.Fs
	workingDir string
	printer    *console.Printer
	logger     logging.Logger
}

// newApp loads the configuration and builds the shared collaborators.
func newApp(cmd *cobra.Command) (*app, error) {
	v := viper.GetViper()
	if _, err := config.Read(v); err != nil {
		return nil, vuedtserrors.NewConfigError(vuedtserrors.CodeConfigInvalid, "cannot read settings", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, vuedtserrors.NewConfigError(vuedtserrors.CodeConfigInvalid, "invalid settings", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	out := cmd.OutOrStdout()
	styled := out == os.Stdout && console.IsStdoutTerminal()

	loggerConfig := cfg.LoggerConfig()
	loggerConfig.Output = cmd.ErrOrStderr()

	return &app{
		config:     cfg,
		fs:         afero.NewOsFs(),
		workingDir: wd,
		printer:    console.NewPrinter(out, styled),
		logger:     logging.NewLogger(loggerConfig),
	}, nil
}

// environment returns the language service environment of the app.
func (a *app) environment() service.Environment {
	return service.Environment{
		WorkingDir: a.workingDir,
		FS:         a.fs,
		Engine:     newEngine(a.config, a.fs, a.logger),
		Logger:     a.logger,
	}
}

// writer returns an artifact writer printing to the app console.
func (a *app) writer() *build.Writer {
	return build.NewWriter(build.WriterConfig{FS: a.fs, Printer: a.printer, Logger: a.logger})
}

// targets expands the directory arguments.
func (a *app) targets(args []string) ([]string, error) {
	s := scanner.New(a.fs, a.workingDir, scanner.WithExclude(a.config.Exclude...))
	return s.Expand(args)
}

// compilerOptions reads the tsconfig.json passed explicitly or found above
// the deepest directory shared by args, and applies the emit defaults.
func (a *app) compilerOptions(ctx context.Context, args []string) (*tsconfig.CompilerOptions, error) {
	var (
		opts *tsconfig.CompilerOptions
		path string
		err  error
	)

	if a.config.TSConfig != "" {
		path = a.absolute(a.config.TSConfig)
		opts, err = tsconfig.Load(a.fs, path)
	} else {
		root := a.absolute(scanner.DeepestSharedRoot(args))
		opts, path, err = tsconfig.LoadFrom(a.fs, root)
	}
	if err != nil {
		return nil, vuedtserrors.NewConfigError(vuedtserrors.CodeTSConfigInvalid, "cannot read tsconfig.json", err).
			WithLocation(path, 0, 0)
	}

	if opts != nil {
		a.printer.Print(fmt.Sprintf("use this tsconfig.json: %s\n", path))
		a.logger.Debug(ctx, "Loaded compiler options", "path", path, "extra", opts.ExtraKeys())
	} else {
		a.printer.Print("tsconfig.json not found in your project\n")
	}

	return tsconfig.WithEmitDefaults(opts), nil
}

func (a *app) absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.workingDir, path)
}

// commandContext returns the context of cmd, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
