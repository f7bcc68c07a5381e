package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchModel calls onChange after the model file at path is rewritten. Events
// are debounced because training writes a temp file and renames it. Errors
// returned by onChange are logged and watching continues. WatchModel returns
// when ctx is done.
func WatchModel(ctx context.Context, path string, debounce time.Duration, log *zap.Logger, onChange func(context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// watch the directory, the file itself is replaced on every save
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isModelEvent(event, path) {
				continue
			}
			if !pending {
				timer.Reset(debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			pending = false
			if err := onChange(ctx); err != nil {
				log.Error("model reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("model reloaded", zap.String("path", path))
		}
	}
}

func isModelEvent(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
