package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	vuedtserrors "github.com/conneroisu/vuedts/internal/errors"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/service"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// DefaultConcurrency bounds the number of containers emitted at once.
const DefaultConcurrency = 8

// Generator emits declarations for a batch of containers.
type Generator struct {
	env         service.Environment
	writer      *Writer
	concurrency int
	logger      logging.Logger
}

// GeneratorConfig holds the dependencies of a Generator.
type GeneratorConfig struct {
	Environment service.Environment
	Writer      *Writer
	Concurrency int
	Logger      logging.Logger
}

// NewGenerator creates a generator. The writer defaults to one over the
// environment's file system.
func NewGenerator(cfg GeneratorConfig) *Generator {
	g := &Generator{
		env:         cfg.Environment,
		writer:      cfg.Writer,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
	if g.logger == nil {
		g.logger = logging.NewNopLogger()
	}
	if g.env.FS == nil {
		g.env.FS = afero.NewOsFs()
	}
	if g.env.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			g.env.WorkingDir = wd
		}
	}
	if g.writer == nil {
		g.writer = NewWriter(WriterConfig{FS: g.env.FS, Logger: g.logger})
	}
	if g.concurrency <= 0 {
		g.concurrency = DefaultConcurrency
	}
	if g.env.Logger == nil {
		g.env.Logger = g.logger
	}
	g.logger = g.logger.WithComponent("generator")
	return g
}

// Writer returns the artifact writer used by the generator.
func (g *Generator) Writer() *Writer {
	return g.writer
}

// Run emits a declaration for every container in files and writes the clean
// ones. Non-container entries are ignored and relative paths are resolved
// against the working directory. The adapter is built over the type-root
// declarations plus the containers so that the whole batch is compiled as one
// program.
func (g *Generator) Run(ctx context.Context, files []string, opts *tsconfig.CompilerOptions) (Summary, error) {
	start := time.Now()

	containers := g.containers(files)
	if len(containers) == 0 {
		return Summary{}, vuedtserrors.NewValidationError(vuedtserrors.CodeNoInputs, "no .vue files found")
	}

	roots, err := g.roots(opts, containers)
	if err != nil {
		return Summary{}, err
	}

	svc, err := service.New(roots, opts, g.env)
	if err != nil {
		return Summary{}, vuedtserrors.NewEngineError(vuedtserrors.CodeEngineStart, "cannot start the compiler", err)
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			g.logger.Warn(ctx, cerr, "Failed to close language service")
		}
	}()

	g.logger.Info(ctx, "Generating declarations",
		"containers", len(containers), "roots", len(roots), "concurrency", g.concurrency)

	p := pool.NewWithResults[Outcome]().
		WithContext(ctx).
		WithMaxGoroutines(g.concurrency)

	for _, container := range containers {
		container := container
		p.Go(func(ctx context.Context) (Outcome, error) {
			if err := ctx.Err(); err != nil {
				return OutcomeSkipped, err
			}
			return g.writer.Save(ctx, svc, container), nil
		})
	}

	outcomes, err := p.Wait()

	var summary Summary
	for _, outcome := range outcomes {
		switch outcome {
		case OutcomeEmitted:
			summary.Emitted++
		case OutcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}
	summary.Duration = time.Since(start)

	g.logger.Info(ctx, "Generation finished",
		"emitted", summary.Emitted, "failed", summary.Failed,
		"skipped", summary.Skipped, "duration_ms", summary.Duration.Milliseconds())

	if err != nil {
		return summary, err
	}
	if summary.Failed > 0 {
		return summary, vuedtserrors.NewBuildError(vuedtserrors.CodeEmitFailed, "some declarations could not be emitted", nil).
			WithContext("failed", summary.Failed)
	}
	return summary, nil
}

func (g *Generator) containers(files []string) []string {
	seen := make(map[string]bool, len(files))
	containers := make([]string, 0, len(files))
	for _, file := range files {
		if !identity.IsContainerFile(file) {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(g.env.WorkingDir, file)
		}
		file = filepath.Clean(file)
		if !seen[file] {
			seen[file] = true
			containers = append(containers, file)
		}
	}
	return containers
}

func (g *Generator) roots(opts *tsconfig.CompilerOptions, containers []string) ([]string, error) {
	if opts == nil {
		return containers, nil
	}
	declarations, err := tsconfig.TypeRootDeclarations(g.env.FS, opts)
	if err != nil {
		return nil, vuedtserrors.NewIOError(vuedtserrors.CodeTSConfigInvalid, "cannot read type roots", err)
	}
	return append(declarations, containers...), nil
}
