package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rediwo/redi-shape/engine"
	"github.com/rediwo/redi-shape/logger"
)

// ReloadCallback is called with each config that was loaded and stored
type ReloadCallback func(*Config)

// ErrorCallback is called when a reload fails. The previous settings stay.
type ErrorCallback func(error)

// Watcher reloads a settings file into Settings whenever it changes
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	settings      *Settings
	engine        *engine.Engine
	onReload      ReloadCallback
	onError       ErrorCallback
	logger        logger.Logger
	debounceDelay time.Duration
	mu            sync.Mutex
	stopCh        chan struct{}
	stoppedCh     chan struct{}
	running       bool
}

type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long events are coalesced before a reload
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

func WithLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEngine sets the engine hooks are compiled into. Without it each
// reload gets a fresh engine.
func WithEngine(e *engine.Engine) WatcherOption {
	return func(w *Watcher) {
		w.engine = e
	}
}

func WithReloadCallback(callback ReloadCallback) WatcherOption {
	return func(w *Watcher) {
		w.onReload = callback
	}
}

func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

func NewWatcher(path string, settings *Settings, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		watcher:       fsWatcher,
		settings:      settings,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.GetGlobalLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the file once and then watches its directory, so editors that
// replace the file on save are picked up too.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.Reload(); err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	w.logger.Info("Watching settings file %s", w.path)
	go w.watch(ctx)
	return nil
}

// Stop ends the watch loop and releases the watcher
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh
	return w.watcher.Close()
}

// Reload loads, compiles and stores the file now
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}

	eng := w.engine
	if eng == nil {
		eng = engine.New(engine.WithLogger(w.logger))
	}
	override, err := cfg.Compile(eng)
	if err != nil {
		return err
	}

	w.settings.Store(override)
	if w.onReload != nil {
		w.onReload(cfg)
	}
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Settings watcher stopped: %v", ctx.Err())
			return

		case <-w.stopCh:
			w.logger.Debug("Settings watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("Settings file changed (%s)", event.Op)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounceDelay)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			if err := w.Reload(); err != nil {
				w.fail(err)
				continue
			}
			w.logger.Info("Reloaded settings from %s", w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) fail(err error) {
	w.logger.Error("Failed to reload settings: %v", err)
	if w.onError != nil {
		w.onError(err)
	}
}
