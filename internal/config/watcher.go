package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/grantcarthew/spreadfire/internal/logging"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// WatcherConfig holds config file watcher configuration.
type WatcherConfig struct {
	Path     string            // Config file to watch
	Debounce time.Duration     // Quiet period before reloading (0 = DefaultDebounce)
	OnReload func(cfg *Config) // Called with the new config after a valid edit
	OnError  func(err error)   // Called when the edited file fails to load
	Clock    clock.Clock       // Debounce time source (nil = wall clock)
	Logger   *zerolog.Logger
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	config    WatcherConfig
	absPath   string
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	mu        sync.Mutex
	running   bool
	done      chan struct{}
	logger    zerolog.Logger
}

// NewWatcher creates a new config file watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	w := &Watcher{
		config:    cfg,
		absPath:   absPath,
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
		logger:    logging.Component(&logger, "config").With().Str("path", absPath).Logger(),
	}
	w.debouncer = newDebouncer(cfg.Clock, cfg.Debounce, w.reload)

	return w, nil
}

// Start starts watching the config file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	// Editors replace files on save, so watch the directory and filter by name.
	dir := filepath.Dir(w.absPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add watch path %s: %w", dir, err)
	}
	w.logger.Debug().Str("dir", dir).Msg("watching config file")

	go w.eventLoop()

	return nil
}

// Stop stops the watcher and waits for its event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.debouncer.stop()

	if err := w.fsWatcher.Close(); err != nil {
		return err
	}

	<-w.done
	return nil
}

// eventLoop processes file system events.
func (w *Watcher) eventLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("config file changed")
			w.debouncer.trigger()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// reload loads the file and reports the outcome.
func (w *Watcher) reload() {
	cfg, err := LoadAndValidate(w.absPath)
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed, keeping previous values")
		if w.config.OnError != nil {
			w.config.OnError(err)
		}
		return
	}
	w.logger.Info().Msg("config reloaded")
	if w.config.OnReload != nil {
		w.config.OnReload(cfg)
	}
}

// debouncer debounces events to prevent excessive triggers.
type debouncer struct {
	clock    clock.Clock
	delay    time.Duration
	callback func()
	timer    *clock.Timer
	mu       sync.Mutex
}

// newDebouncer creates a new debouncer.
func newDebouncer(clk clock.Clock, delay time.Duration, callback func()) *debouncer {
	return &debouncer{
		clock:    clk,
		delay:    delay,
		callback: callback,
	}
}

// trigger triggers the debouncer, resetting the delay timer.
func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = d.clock.AfterFunc(d.delay, d.callback)
}

// stop stops the debouncer.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
