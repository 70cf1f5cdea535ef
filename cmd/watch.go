package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/registry"
	"github.com/conneroisu/vuedts/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch <directory...>",
	Aliases: []string{"w"},
	Short:   "Keep declaration files up to date",
	Long: `Emit declarations for every .vue file beneath the given directories, then
watch them. Changed components (and components whose <script src> file
changed) are emitted again; deleted components have their declaration
removed. A component with errors keeps its previous declaration.

Examples:
  vuedts watch src
  VUEDTS_WATCH_DEBOUNCE=1s vuedts watch src`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	opts, err := a.compilerOptions(ctx, args)
	if err != nil {
		return err
	}

	targets, err := a.targets(args)
	if err != nil {
		return err
	}

	session, err := watcher.NewSync(opts, a.environment(), a.writer())
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Warn(ctx, err, "Failed to close language service")
		}
	}()

	events := session.Service().Registry().Watch()
	defer session.Service().Registry().UnWatch(events)
	go logRegistryEvents(ctx, a.logger, events)

	return watcher.Run(ctx, session, targets, watcher.Config{
		Debounce: a.config.Watch.Debounce,
		Logger:   a.logger,
	})
}

func logRegistryEvents(ctx context.Context, logger logging.Logger, events <-chan registry.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logger.Debug(ctx, "File reloaded",
				"file", event.Entry.RawName, "event", event.Type.String(), "version", event.Entry.Version)
		}
	}
}
