// Package watch notifies when the set of installations under an engine root changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce collapses bursts of filesystem events, such as an installer
// unpacking a new engine version, into one notification.
const DefaultDebounce = 500 * time.Millisecond

// EngineWatcher watches the direct children of an engine root
type EngineWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(root string)
	logger   logrus.FieldLogger

	mu       sync.Mutex
	timer    *time.Timer
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewEngineWatcher creates a watcher that calls onChange after entries are
// created, removed or renamed directly under root
func NewEngineWatcher(root string, debounce time.Duration, onChange func(root string), logger logrus.FieldLogger) (*EngineWatcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve engine root: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &EngineWatcher{
		root:     absRoot,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Root returns the watched directory
func (w *EngineWatcher) Root() string {
	return w.root
}

// Start begins watching; it returns once the watch is registered
func (w *EngineWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch engine root %s: %w", w.root, err)
	}

	w.logger.WithField("root", w.root).Debug("watching engine root")
	go w.watchLoop(ctx)
	return nil
}

// Close stops watching
func (w *EngineWatcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func (w *EngineWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Dir(event.Name) != w.root {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.WithFields(logrus.Fields{"entry": event.Name, "op": event.Op.String()}).Debug("engine root changed")
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("engine watcher error")
		}
	}
}

// trigger (re)arms the debounce timer
func (w *EngineWatcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopChan:
			return
		default:
		}
		w.onChange(w.root)
	})
}
