// Package settings reloads the auto-close policy when the config file
// changes on disk, giving the engine the live-update behavior a synced
// settings store would provide.
package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"tabward/internal/config"
	"tabward/internal/reaper"
)

// Watcher watches the config file and delivers the merged policy section on
// every change. Reload failures are logged and the previous settings stay in
// effect until the file becomes readable again.
type Watcher struct {
	path string
	log  reaper.Logger
}

func NewWatcher(path string, log reaper.Logger) *Watcher {
	return &Watcher{path: path, log: log}
}

// Run blocks until ctx is done, invoking apply with the freshly loaded
// settings after each file change. The parent directory is watched rather
// than the file itself because editors typically replace the file on save.
func (w *Watcher) Run(ctx context.Context, apply func(reaper.Settings)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			cfg, err := config.ReadFromFile(w.path)
			if err != nil {
				w.log.Warn("reloading settings", "error", err)
				continue
			}
			w.log.Info("settings file changed, reloading")
			apply(cfg.Policy)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("settings watcher", "error", err)
		}
	}
}
