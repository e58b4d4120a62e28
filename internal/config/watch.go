package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config at path whenever it is written and passes the
// result to onChange. A reload that fails to parse or validate is logged
// and skipped. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory so editors that save via rename are still seen
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)
	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
