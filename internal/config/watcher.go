package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"termcore/internal/logging"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file on change and hands the result to a
// callback. Bursts of filesystem events collapse into one reload per
// debounce window. It watches the parent directory so editors that replace
// the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *logging.Logger
	onChange func(Config)

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	done chan struct{}
}

func Watch(path string, debounce time.Duration, logger *logging.Logger, onChange func(Config)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("config watch: nil callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", map[string]string{"error": err.Error()})
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.reload)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", map[string]string{"path": w.path, "error": err.Error()})
		return
	}
	w.logger.Info("config reloaded", map[string]string{"path": w.path})
	w.onChange(cfg)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	return err
}
