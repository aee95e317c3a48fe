package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Config from disk whenever the backing YAML file is
// written, grounded on newplayman-market-maker-go/internal/config's
// fsnotify-backed HotReloader — simplified to the single-document case
// this service needs (no per-category validators/appliers).
type Watcher struct {
	Path     string
	Cooldown time.Duration

	watcher    *fsnotify.Watcher
	lastReload time.Time
}

// NewWatcher creates a Watcher for the config file at path. Cooldown
// defaults to 2s if zero, to coalesce editor save-bursts.
func NewWatcher(path string, cooldown time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &Watcher{Path: path, Cooldown: cooldown, watcher: fw}, nil
}

// Start watches until ctx is canceled, invoking onUpdate with the newly
// loaded Config each time the file changes (and Validate passes). Parse
// or validation failures are reported via onError and do not replace the
// currently-running config.
func (w *Watcher) Start(ctx context.Context, onUpdate func(Config), onError func(error)) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(w.lastReload) < w.Cooldown {
				continue
			}
			cfg, err := Load(w.Path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			w.lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
