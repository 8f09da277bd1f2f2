package library

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// Watcher evicts probe cache entries when files in the watched
// directories are created, written, removed or renamed.
type Watcher struct {
	logger  hclog.Logger
	cache   *ProbeCache
	watcher *fsnotify.Watcher

	wg       sync.WaitGroup
	stopOnce sync.Once
	evicted  chan string
}

// NewWatcher watches dirs (not recursively) on behalf of cache.
func NewWatcher(cache *ProbeCache, logger hclog.Logger, dirs ...string) (*Watcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to add watch for %s: %w", dir, err)
		}
	}

	return &Watcher{
		logger:  logger.Named("watcher"),
		cache:   cache,
		watcher: fw,
	}, nil
}

// Start begins processing file system events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchEvents()
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) watchEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.cache.Evict(event.Name)
			w.logger.Trace("evicted probe", "path", event.Name, "op", event.Op.String())
			if w.evicted != nil {
				w.evicted <- event.Name
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}
