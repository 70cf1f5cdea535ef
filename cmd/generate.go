package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/vuedts/internal/build"
	"github.com/conneroisu/vuedts/internal/console"
	"github.com/conneroisu/vuedts/internal/logging"
)

var generateCmd = &cobra.Command{
	Use:     "generate <directory...>",
	Aliases: []string{"gen", "g"},
	Short:   "Generate declaration files once",
	Long: `Type-check every .vue file beneath the given directories as one program and
write <file>.vue.d.ts next to each component that has no errors.

Examples:
  vuedts generate src
  vuedts generate src/components src/views --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	perf := logging.StartOperation(a.logger, "generate")
	defer perf.End(ctx)

	opts, err := a.compilerOptions(ctx, args)
	if err != nil {
		return err
	}

	targets, err := a.targets(args)
	if err != nil {
		return err
	}

	writer := a.writer()
	generator := build.NewGenerator(build.GeneratorConfig{
		Environment: a.environment(),
		Writer:      writer,
		Concurrency: a.config.Concurrency,
		Logger:      a.logger,
	})

	run, err := generator.Run(ctx, targets, opts)
	reportSummary(a.printer, writer, a.workingDir, run.Duration)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return nil
}

// reportSummary prints the files that failed, with their error counts, and
// the outcome totals of the run.
func reportSummary(printer *console.Printer, writer *build.Writer, workingDir string, elapsed time.Duration) {
	collector := writer.Collector()
	if collector.HasErrors() {
		files := collector.Files()
		rows := make([][]string, 0, len(files))
		for _, file := range files {
			display := file
			if rel, err := filepath.Rel(workingDir, file); err == nil {
				display = rel
			}
			rows = append(rows, []string{display, strconv.Itoa(len(collector.GetErrorsByFile(file)))})
		}
		printer.Print(printer.RenderTable(console.TableConfig{
			Title:   fmt.Sprintf("%d errors in %d files", len(collector.GetErrors()), len(files)),
			Headers: []string{"FILE", "ERRORS"},
			Rows:    rows,
		}))
	}

	summary := writer.Metrics().Snapshot()
	if summary.Total() == 0 {
		return
	}
	printer.Info(fmt.Sprintf("%d emitted, %d failed, %d skipped in %s",
		summary.Emitted, summary.Failed, summary.Skipped, elapsed.Round(time.Millisecond)))
}
