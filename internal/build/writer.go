// Package build writes declaration artifacts next to their containers, either
// for a single container (watch mode) or for a whole batch (generate).
package build

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/vuedts/internal/console"
	vuedtserrors "github.com/conneroisu/vuedts/internal/errors"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/service"
)

// Emitter produces declarations. *service.LanguageService implements it.
type Emitter interface {
	Emit(ctx context.Context, name string) service.Result
}

// Writer saves and removes "<container>.d.ts" artifacts and reports each one
// on the console.
type Writer struct {
	fs        afero.Fs
	printer   *console.Printer
	logger    logging.Logger
	metrics   *Metrics
	collector *vuedtserrors.ErrorCollector
}

// WriterConfig holds the dependencies of a Writer. Nil fields get defaults.
type WriterConfig struct {
	FS        afero.Fs
	Printer   *console.Printer
	Logger    logging.Logger
	Metrics   *Metrics
	Collector *vuedtserrors.ErrorCollector
}

// NewWriter creates a writer.
func NewWriter(cfg WriterConfig) *Writer {
	w := &Writer{
		fs:        cfg.FS,
		printer:   cfg.Printer,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		collector: cfg.Collector,
	}
	if w.fs == nil {
		w.fs = afero.NewOsFs()
	}
	if w.printer == nil {
		w.printer = console.Stdout()
	}
	if w.logger == nil {
		w.logger = logging.NewNopLogger()
	}
	if w.metrics == nil {
		w.metrics = NewMetrics()
	}
	if w.collector == nil {
		w.collector = vuedtserrors.NewErrorCollector()
	}
	w.logger = w.logger.WithComponent("writer")
	return w
}

// Metrics returns the outcome counters.
func (w *Writer) Metrics() *Metrics {
	return w.metrics
}

// Collector returns the errors reported so far.
func (w *Writer) Collector() *vuedtserrors.ErrorCollector {
	return w.collector
}

// Save emits container and writes its declaration. Errors are printed and
// nothing is written; an absent declaration is skipped silently.
func (w *Writer) Save(ctx context.Context, emitter Emitter, container string) Outcome {
	start := time.Now()
	outcome := w.save(ctx, emitter, container)
	w.metrics.Record(outcome, time.Since(start))
	return outcome
}

func (w *Writer) save(ctx context.Context, emitter Emitter, container string) Outcome {
	target := identity.DeclarationName(container)

	result := emitter.Emit(ctx, container)
	if len(result.Errors) > 0 {
		w.fail(target, result.Errors)
		return OutcomeFailed
	}
	if !result.OK() {
		w.logger.Debug(ctx, "No declaration emitted", "file", container)
		return OutcomeSkipped
	}

	if err := afero.WriteFile(w.fs, target, []byte(*result.Declaration), 0o644); err != nil {
		w.logger.Warn(ctx, err, "Failed to write declaration", "file", target)
		w.fail(target, []string{err.Error()})
		return OutcomeFailed
	}

	w.printer.Emitted(target)
	return OutcomeEmitted
}

// Remove deletes the declaration written for container.
func (w *Writer) Remove(container string) Outcome {
	start := time.Now()
	outcome := w.remove(container)
	w.metrics.Record(outcome, time.Since(start))
	return outcome
}

func (w *Writer) remove(container string) Outcome {
	target := identity.DeclarationName(container)

	if err := w.fs.Remove(target); err != nil {
		w.fail(target, []string{err.Error()})
		return OutcomeFailed
	}

	w.printer.Removed(target)
	return OutcomeRemoved
}

func (w *Writer) fail(target string, errs []string) {
	w.collector.AddDiagnostics(target, errs)
	w.printer.Error(target, errs)
}
