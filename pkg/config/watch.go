package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the settings file whenever it changes on disk and
// hands each valid snapshot to onReload. Invalid edits are logged and
// ignored; the previous snapshot stays in effect. Watch blocks until
// ctx is cancelled.
//
// Reload is the only way a running process picks up new settings; a
// decoding run in flight keeps the snapshot it started with.
func Watch(ctx context.Context, path string, logger *zap.Logger, onReload func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger.Info("watching settings file", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			s, err := Load(path)
			if err != nil {
				logger.Error("ignoring invalid settings edit", zap.Error(err))
				continue
			}

			logger.Info("settings reloaded", zap.String("path", path))
			onReload(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
