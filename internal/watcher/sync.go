package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/conneroisu/vuedts/internal/build"
	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/logging"
	"github.com/conneroisu/vuedts/internal/service"
	"github.com/conneroisu/vuedts/internal/tsconfig"
)

// DefaultDebounce is the quiet period before a batch of changes is handled.
const DefaultDebounce = 300 * time.Millisecond

// Sync applies file changes to a language service and rewrites or removes the
// affected declaration artifacts. Calls must not overlap.
type Sync struct {
	service *service.LanguageService
	writer  *build.Writer
	logger  logging.Logger
}

// NewSync creates a language service with no roots over env and wraps it.
// Declarations are never emitted for containers with errors.
func NewSync(opts *tsconfig.CompilerOptions, env service.Environment, writer *build.Writer) (*Sync, error) {
	opts = opts.Clone()
	opts.NoEmitOnError = tsconfig.Bool(true)

	svc, err := service.New(nil, opts, env)
	if err != nil {
		return nil, err
	}

	logger := env.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if writer == nil {
		writer = build.NewWriter(build.WriterConfig{FS: env.FS, Logger: logger})
	}

	return &Sync{
		service: svc,
		writer:  writer,
		logger:  logger.WithComponent("sync"),
	}, nil
}

// Service returns the wrapped language service.
func (s *Sync) Service() *service.LanguageService {
	return s.service
}

// Close releases the language service.
func (s *Sync) Close() error {
	return s.service.Close()
}

// Add handles a newly seen file.
func (s *Sync) Add(ctx context.Context, path string) {
	s.save(ctx, path)
}

// Change handles a modified file.
func (s *Sync) Change(ctx context.Context, path string) {
	s.save(ctx, path)
}

// Unlink handles a deleted file: every container whose code lived in path is
// reloaded and its artifact removed.
func (s *Sync) Unlink(ctx context.Context, path string) {
	for _, container := range s.service.HostContainers(path) {
		s.service.UpdateFile(container)
		s.writer.Remove(container)
	}
}

func (s *Sync) save(ctx context.Context, path string) {
	for _, container := range s.service.HostContainers(path) {
		s.service.UpdateFile(container)
		s.writer.Save(ctx, s.service, container)
	}
}

// Initial treats each container in files as added.
func (s *Sync) Initial(ctx context.Context, files []string) {
	for _, file := range files {
		if identity.IsContainerFile(file) {
			s.Add(ctx, file)
		}
	}
}

// Handle dispatches a debounced batch of change events. A renamed path is
// treated as deleted; its new name arrives as a separate create event.
//
// The writer's error collector holds the errors of the latest batch only.
func (s *Sync) Handle(ctx context.Context, events []ChangeEvent) error {
	collector := s.writer.Collector()
	collector.Clear()
	defer func() {
		if collector.HasErrors() {
			s.logger.Debug(ctx, "Batch left components with errors", "files", collector.Files())
		}
	}()

	for _, event := range events {
		s.logger.Debug(ctx, "File changed", "path", event.Path, "type", event.Type.String())

		switch event.Type {
		case EventTypeCreated:
			s.Add(ctx, event.Path)
		case EventTypeModified:
			s.Change(ctx, event.Path)
		case EventTypeDeleted, EventTypeRenamed:
			s.Unlink(ctx, event.Path)
		default:
			return fmt.Errorf("unknown event type %d for %s", event.Type, event.Path)
		}
	}
	return nil
}

// Config holds the settings of a watch session.
type Config struct {
	Debounce time.Duration
	Logger   logging.Logger
}

// Run watches targets until ctx is done. Directory targets are watched
// recursively and file targets individually; the containers among targets are
// emitted once before the first change arrives.
func Run(ctx context.Context, s *Sync, targets []string, cfg Config) error {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fw, err := NewFileWatcher(cfg.Debounce, logger)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(NoDeclarationFilter)
	fw.AddFilter(NoNodeModulesFilter)
	fw.AddFilter(NoGitFilter)

	for _, target := range targets {
		info, err := os.Stat(target)
		switch {
		case err != nil:
			logger.Warn(ctx, err, "Skipping target", "path", target)
			continue
		case info.IsDir():
			err = fw.AddRecursive(target)
		default:
			err = fw.AddPath(target)
		}
		if err != nil {
			return fmt.Errorf("watching %s: %w", target, err)
		}
	}

	s.Initial(ctx, targets)

	fw.AddHandler(s.Handle)
	if err := fw.Start(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Watching for changes", "paths", len(fw.WatchList()))
	<-ctx.Done()
	return nil
}
