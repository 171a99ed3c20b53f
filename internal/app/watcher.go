package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"kalitools/internal/domain"
	"kalitools/internal/infra/catalog"
)

const defaultReloadDebounce = 200 * time.Millisecond

// CatalogWatcher reloads the catalog store when its file is edited
// externally. Events are debounced so an editor's write-then-rename dance
// triggers a single reload.
type CatalogWatcher struct {
	store   *catalog.Store
	emitter domain.ChangeEmitter
	logger  *zap.Logger
}

func NewCatalogWatcher(store *catalog.Store, emitter domain.ChangeEmitter, logger *zap.Logger) *CatalogWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogWatcher{store: store, emitter: emitter, logger: logger.Named("watcher")}
}

// Run watches until ctx is canceled. The directory is watched rather than
// the file itself so atomic replaces (write temp, rename) are seen.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.store.Path())); err != nil {
		return err
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("catalog watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultReloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(defaultReloadDebounce)
		case <-timerChan(timer):
			timer = nil
			if err := w.store.Reload(); err != nil {
				w.logger.Warn("catalog reload failed", zap.Error(err))
				continue
			}
			if w.emitter != nil {
				w.emitter.Emit(domain.ChangeEvent{
					Kind:  domain.KindCatalogMerged,
					Count: w.store.Len(),
					At:    time.Now(),
				})
			}
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
