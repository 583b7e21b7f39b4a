package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the burst of events a single save produces.
const reloadDebounce = 150 * time.Millisecond

// Watcher delivers the reloaded Config each time config.toml changes on disk.
type Watcher struct {
	fs      *fsnotify.Watcher
	path    string
	changes chan Config
	done    chan struct{}
	logger  *zap.Logger
}

// Watch starts watching the config file. The directory is watched rather
// than the file so that editors which replace the file are still seen.
func Watch(logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		fs:      fsw,
		path:    filepath.Clean(ConfigPath()),
		changes: make(chan Config, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

// Changes yields reloaded configs. Only the latest unread one is kept.
// The channel is closed after Close.
func (w *Watcher) Changes() <-chan Config {
	return w.changes
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.changes)

	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fire = time.After(reloadDebounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))

		case <-fire:
			fire = nil
			cfg, err := Load()
			if err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", w.path))
			// Replace any unread config with the newer one.
			select {
			case <-w.changes:
			default:
			}
			w.changes <- cfg
		}
	}
}
