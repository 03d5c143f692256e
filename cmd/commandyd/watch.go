package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchedFiles are the files in the config directory that trigger a reload.
var watchedFiles = map[string]bool{
	"config.toml":     true,
	"prompt.tmpl":     true,
	"vocabulary.yaml": true,
}

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 250 * time.Millisecond

// WatchConfig reloads the handler whenever a watched file in dir changes.
// Watching stops when ctx is done.
func (s *Server) WatchConfig(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors often replace files instead of writing them.
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	slog.Info("watching config", "dir", dir)

	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !watchedFiles[filepath.Base(ev.Name)] || ev.Op == fsnotify.Chmod {
					continue
				}
				slog.Debug("config file changed", "file", ev.Name, "op", ev.Op.String())
				if timer == nil {
					timer = time.AfterFunc(reloadDebounce, s.Reload)
				} else {
					timer.Reset(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()
	return nil
}
