package turn

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/crayonluffy/claudecode-telegram/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompBridge)

// Watcher reacts to the turn marker being lowered by an external process,
// normally the Claude Code Stop hook deleting the file when a response
// completes. A slow poll backs up fsnotify for filesystems that drop
// events.
type Watcher struct {
	latch    *Latch
	watcher  *fsnotify.Watcher
	onLower  func()
	interval time.Duration
}

// NewWatcher watches latch's marker and calls onLower each time the marker
// transitions from raised to lowered.
func NewWatcher(latch *Latch, onLower func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		latch:    latch,
		watcher:  fsw,
		onLower:  onLower,
		interval: 2 * time.Second,
	}, nil
}

// Start blocks watching for marker removal until ctx is canceled. Callers
// run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	// Watch the directory, not the file: the marker is created and
	// removed repeatedly, and a watch on the file itself dies with it.
	dir := filepath.Dir(w.latch.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watchLog.Warn("turn_watch_dir_failed", slog.String("error", err.Error()))
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		watchLog.Warn("turn_watch_add_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	wasPending := w.latch.Pending()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	check := func() {
		pending := w.latch.Pending()
		if wasPending && !pending {
			w.onLower()
		}
		wasPending = pending
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.latch.Path {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			check()

		case <-ticker.C:
			check()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("turn_watch_error", slog.String("error", err.Error()))
		}
	}
}
