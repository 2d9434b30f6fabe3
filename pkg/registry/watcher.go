package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opshub-io/opshub/pkg/observability"
)

// Watcher reloads the registry when the platform manifest file changes.
// A bad manifest keeps the previous catalog in place; reload failures are
// logged loudly rather than serving a partial or default catalog.
type Watcher struct {
	path     string
	registry *Registry
	logger   *observability.Logger
	debounce time.Duration
}

// NewWatcher creates a manifest watcher for the given file path.
func NewWatcher(path string, registry *Registry, logger *observability.Logger) *Watcher {
	return &Watcher{
		path:     path,
		registry: registry,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
}

// Run watches until the context is cancelled. Editors and config
// management tools often replace files via rename, so the parent
// directory is watched and events are filtered by file name.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: a single save can emit several events.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("manifest watcher error")
		}
	}
}

func (w *Watcher) reload() {
	catalog, err := LoadManifest(w.path)
	if err != nil {
		w.logger.WithError(err).WithField("path", w.path).
			Error("manifest reload failed, keeping previous catalog")
		return
	}
	w.registry.Swap(catalog)
	w.logger.WithField("path", w.path).
		WithField("modules", len(catalog.modules)).
		Info("module registry reloaded")
}
