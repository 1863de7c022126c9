package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a path must be quiet before it is re-indexed.
const DefaultSettle = 500 * time.Millisecond

// Remover deletes the passages of a source.
type Remover interface {
	RemoveSource(ctx context.Context, source string) (int, error)
}

// Watcher keeps an index in step with a directory. Created or modified
// supported files are re-indexed once they settle; removed files have their
// passages deleted.
type Watcher struct {
	ingester *Ingester
	remover  Remover
	settle   time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(ingester *Ingester, remover Remover, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		ingester: ingester,
		remover:  remover,
		settle:   settle,
		logger:   logger.With("system", "watch"),
		pending:  make(map[string]*time.Timer),
	}
}

// Watch blocks until ctx is cancelled, syncing supported files in dir as they change.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.InfoContext(ctx, "watching", "dir", dir)

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !Watched(ev.Name) {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[ev.Name]; ok {
		t.Reset(w.settle)
		return
	}

	path := ev.Name
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if err := w.Sync(ctx, path); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "sync failed", "path", path, "error", err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Sync makes the index reflect the file at path: its passages are replaced
// when it exists and removed when it does not.
func (w *Watcher) Sync(ctx context.Context, path string) error {
	source := filepath.Base(path)

	removed, err := w.remover.RemoveSource(ctx, source)
	if err != nil {
		return fmt.Errorf("remove %s: %w", source, err)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.logger.InfoContext(ctx, "source removed", "source", source, "passages", removed)
		return nil
	}

	_, err = w.ingester.IngestFile(ctx, path)
	return err
}

// Watched reports whether path is a supported, non-hidden file.
func Watched(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && Supported(base)
}

// Collect expands paths into the supported files they name. Directories
// are walked recursively; hidden entries are skipped.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if Watched(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
