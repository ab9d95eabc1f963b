package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is the part of Store the watcher drives.
type Reloader interface {
	Reload(ctx context.Context) (*Model, error)
}

// Watcher reloads the curriculum when content files in a directory change.
// Bursts of events within the debounce window trigger a single reload.
type Watcher struct {
	dir      string
	target   Reloader
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher starts observing dir. Call Run to process events.
func NewWatcher(dir string, target Reloader, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{dir: dir, target: target, debounce: debounce, watcher: fw}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := 0

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("curriculum watcher error", "dir", w.dir, "error", err)

		case <-timerC:
			timerC = nil
			slog.Info("curriculum changed, reloading", "dir", w.dir, "events", pending)
			pending = 0
			if _, err := w.target.Reload(ctx); err != nil {
				slog.Warn("curriculum reload failed", "error", err)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !IsContentFile(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
