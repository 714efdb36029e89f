package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig initializes a filesystem watcher for the configuration file.
// It returns a channel that emits an empty struct when a change is detected
// and debounced. The watcher runs in a goroutine until the context is
// canceled. Callers re-Load on each emission and apply the tunables that
// support live updates (timeouts, fallback text); identity fields such as
// the token or chat id require a restart.
func WatchConfig(ctx context.Context, path string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1) // Buffer 1 so we don't block sender

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		return reloadCh
	}

	// Watch the directory, not the file: editors that save atomically
	// (vim, nano) replace the inode and a file-level watch goes stale.
	absPath, err := filepath.Abs(path)
	if err != nil {
		slog.Warn("Could not resolve absolute path for watch file", "file", path)
		absPath = path
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		slog.Warn("Could not watch config directory", "file", absPath, "error", err)
	} else {
		slog.Debug("Watching configuration file", "file", absPath)
	}

	go func() {
		defer watcher.Close()
		defer close(reloadCh)

		// Debounce timer logic
		var timer *time.Timer
		debounceDuration := 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != absPath {
					continue
				}
				// We only care about file modifications or recreations
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounceDuration, func() {
						slog.Info("Configuration change detected", "file", event.Name)
						// Non-blocking send
						select {
						case reloadCh <- struct{}{}:
						default:
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}
