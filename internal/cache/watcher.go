package cache

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher invalidates cache entries eagerly when their source files change
// on disk, instead of waiting for the next stat-validated Get. Useful for
// long-lived sessions that mine the same tree repeatedly.
type Watcher struct {
	cache   *Cache
	watcher *fsnotify.Watcher
	log     *zap.Logger
	done    chan struct{}
}

// NewWatcher starts a watcher bound to the given cache. Call Add for each
// directory to observe and Close when done.
func NewWatcher(c *Cache, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		cache:   c,
		watcher: fw,
		log:     log,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add begins watching a directory (non-recursive, matching fsnotify).
func (w *Watcher) Add(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				w.cache.Invalidate(ev.Name)
				w.log.Debug("cache entry invalidated by fs event",
					zap.String("path", ev.Name),
					zap.String("op", ev.Op.String()))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("fs watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
