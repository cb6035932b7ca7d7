package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Watcher monitors a set of directory roots for media changes and invokes a
// single callback after activity settles. Bursts of events (a camera import
// dropping hundreds of files) collapse into one notification.
type Watcher struct {
	roots    []string
	debounce time.Duration
	onChange func()
}

// NewWatcher creates a watcher over the given roots. onChange runs on the
// watcher's goroutine once per settled burst of filesystem activity.
func NewWatcher(roots []string, debounce time.Duration, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		roots:    roots,
		debounce: debounce,
		onChange: onChange,
	}
}

// Run watches until ctx is cancelled. Errors creating the underlying watcher
// are returned; errors on individual directories are logged and skipped.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := 0
	for _, root := range w.roots {
		watchCount += addTreeToWatcher(watcher, root)
	}
	logging.Debug("watcher started, watching %d directories", watchCount)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.Contains(event.Name, string(os.PathSeparator)+".") {
				continue
			}
			metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
			if event.Op&fsnotify.Create != 0 {
				w.handleCreate(watcher, event.Name)
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleCreate starts watching newly created subdirectories so events under
// them are not missed.
func (w *Watcher) handleCreate(watcher *fsnotify.Watcher, name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := watcher.Add(name); err != nil {
		logging.Warn("failed to add new directory to watcher %s: %v", name, err)
	} else {
		logging.Debug("added new directory to watcher: %s", name)
	}
}

// addTreeToWatcher registers root and every non-hidden subdirectory.
func addTreeToWatcher(watcher *fsnotify.Watcher, root string) int {
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if addErr := watcher.Add(path); addErr != nil {
				logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			} else {
				count++
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", root, err)
	}
	return count
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
