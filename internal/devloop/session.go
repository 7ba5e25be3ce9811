package devloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mailwright/internal/archive"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
	"github.com/conneroisu/mailwright/internal/pipeline"
	"github.com/conneroisu/mailwright/internal/watcher"
)

// Builder runs pipeline sequences.
type Builder interface {
	Build(ctx context.Context) error
	Package(ctx context.Context) (archive.Result, error)
	State() pipeline.State
}

// Previewer serves the build output and pushes reloads.
type Previewer interface {
	Start(ctx context.Context) error
	Reload(buildID string) error
}

// Session is one `mailwright dev` run.
type Session struct {
	Paths    paths.PathSet
	Builder  Builder
	Server   Previewer
	Debounce time.Duration
	// Zip packages the output once after the initial build.
	Zip    bool
	Logger logging.Logger
}

// Run performs the initial build, then serves and watches until ctx is
// cancelled. A failing initial build is returned; failures of watch
// triggered rebuilds are only logged.
func (s *Session) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("devloop")

	if err := s.Builder.Build(ctx); err != nil {
		return err
	}

	if s.Zip {
		res, err := s.Builder.Package(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Packaged build output", "archives", len(res.Archives), "failed", len(res.Failed))
	}

	fw, err := s.newWatcher(ctx, logger)
	if err != nil {
		return err
	}

	controller := NewController(s.Builder.Build, func(context.Context) error {
		return s.Server.Reload(s.Builder.State().BuildID)
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, e := range events {
			logger.Debug(gctx, "Source changed", "path", e.Path, "type", e.Type.String())
		}
		logger.Info(gctx, "Change detected, rebuilding", "files", len(events))
		controller.Trigger(gctx)
		return nil
	})

	g.Go(func() error {
		return s.Server.Start(gctx)
	})
	g.Go(func() error {
		if err := fw.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		controller.Wait()
		return fw.Stop()
	})

	return g.Wait()
}

// newWatcher watches layouts, partials, utils (when present) and the
// template root recursively; the shared data directory for its one file.
func (s *Session) newWatcher(ctx context.Context, logger logging.Logger) (*watcher.FileWatcher, error) {
	debounce := s.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	fw, err := watcher.NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dataDir := filepath.Dir(s.Paths.DataShared)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(watcher.TargetFilter(dataDir, s.Paths.DataShared))

	for _, root := range s.Paths.WatchRoots() {
		if !isDir(root) {
			if root != s.Paths.Utils {
				logger.Warn(ctx, nil, "Watch root missing, not watching", "path", root)
			}
			continue
		}
		if root == dataDir {
			err = fw.AddPath(root)
		} else {
			err = fw.AddRecursive(root)
		}
		if err != nil {
			_ = fw.Stop()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	logger.Info(ctx, "Watching sources", "directories", len(fw.WatchList()))
	return fw, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
