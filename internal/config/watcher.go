package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/conclave-ai/conclave/internal/logging"
)

// ReloadFunc is called with the freshly loaded configuration after the
// watched file changes and revalidates cleanly.
type ReloadFunc func(cfg *Config)

// Watcher watches a configuration file and reloads it on change. Editors
// commonly replace files via rename, so the watch is placed on the parent
// directory and events are filtered by name.
type Watcher struct {
	path     string
	onReload ReloadFunc
	logger   *logging.Logger
	debounce time.Duration

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, logger *logging.Logger, onReload ReloadFunc) *Watcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		stop:     make(chan struct{}),
	}
}

// Start begins watching. It returns once the underlying watch is
// established; reloads are delivered on a background goroutine until the
// context is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	go w.run(ctx, fw)
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.stopped = true
		close(w.stop)
	}
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Coalesce bursts of events from a single save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := viper.ReadInConfig(); err != nil {
		w.logger.Warn("ignoring config change", "path", w.path, "error", err)
		return
	}
	cfg, err := Load()
	if err != nil {
		w.logger.Warn("ignoring config change", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
