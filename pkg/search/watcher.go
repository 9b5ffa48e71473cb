package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/guobin211/opencontext/pkg/catalog"
)

const watcherDebounce = 2 * time.Second

// Watcher bridges external, catalog-bypassing file edits in contextsRoot
// (e.g. a user's own editor) into DocEvent::Updated notifications, so the
// sync service picks them up the same way it would a catalog-driven write.
// The watch is not recursive: only files directly in contextsRoot are seen,
// not files in its subfolders.
// Grounded on the teacher's fsnotify debounce-timer idiom in
// pkg/rag/strategy.VectorStore.watchLoop.
type Watcher struct {
	fsw          *fsnotify.Watcher
	contextsRoot string
	bus          *catalog.EventBus
	log          *slog.Logger
}

// NewWatcher creates an fsnotify watcher rooted at contextsRoot. Call Start
// to begin watching and Close to release the underlying inotify/kqueue fd.
func NewWatcher(contextsRoot string, bus *catalog.EventBus, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, wrapIOError(contextsRoot, err)
	}
	if err := fsw.Add(contextsRoot); err != nil {
		fsw.Close()
		return nil, wrapIOError(contextsRoot, err)
	}
	return &Watcher{fsw: fsw, contextsRoot: contextsRoot, bus: bus, log: log}, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Start runs the debounced event loop until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	pending := make(map[string]bool)
	var mu sync.Mutex

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range paths {
			relPath := w.relPath(p)
			if relPath == "" {
				continue
			}
			w.bus.PublishDoc(catalog.DocEvent{Kind: catalog.DocUpdated, Path: relPath})
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			mu.Lock()
			pending[event.Name] = true
			mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watcherDebounce, flush)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) relPath(abs string) string {
	if !strings.HasPrefix(abs, w.contextsRoot) {
		return ""
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(abs, w.contextsRoot), "/")
	return catalog.NormalizeFolderPath(rel)
}
