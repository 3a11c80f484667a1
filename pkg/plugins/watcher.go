package plugins

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// Poster runs closures on the control goroutine.
type Poster interface {
	Post(fn func()) error
}

// Watcher probes module files as they appear in the search paths. A path
// is probed once it has been quiet for the debounce window, so a file that
// is still being copied is not probed half written. All work is posted to
// the control goroutine.
type Watcher struct {
	manager *Manager
	poster  Poster
	dirs    []string
	// pending holds paths with recent create or write events; an entry
	// expiring means the path settled.
	pending *lru.LRU[string, fsnotify.Op]
	log     *logrus.Logger

	fsw *fsnotify.Watcher
}

// NewWatcher creates a watcher for dirs. The manager is only touched from
// closures given to poster.
func NewWatcher(manager *Manager, poster Poster, dirs []string, debounce time.Duration, log *logrus.Logger) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		manager: manager,
		poster:  poster,
		dirs:    append([]string(nil), dirs...),
		log:     log,
	}
	w.pending = lru.NewLRU[string, fsnotify.Op](1024, w.settled, debounce)
	return w
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	watched := 0
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			w.log.WithError(err).WithField("dir", dir).Warn("Not watching plugin directory")
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no plugin directories could be watched")
	}
	w.log.Infof("Watching %d plugin directories", watched)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Plugin watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			return
		}
		// restarts the quiet period
		w.pending.Add(path, event.Op)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.pending.Remove(path)
		w.post(func() {
			p := w.manager.FindWithFilename(path)
			if p == nil || p.IsLoaded() {
				return
			}
			if err := w.manager.Destroy(p); err != nil {
				w.log.WithError(err).WithField("path", path).Warn("Failed to forget removed plugin")
			}
		})
	}
}

// settled is called when a pending path leaves the cache: on expiry, on
// capacity eviction, or when a remove event drops it. A path that no longer
// holds a regular file is skipped.
func (w *Watcher) settled(path string, _ fsnotify.Op) {
	if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
		return
	}
	w.post(func() {
		if _, err := w.manager.ProbeAndQueue(path); err != nil {
			w.log.WithError(err).WithField("path", path).Debug("Watched file is not a usable plugin")
		}
	})
}

func (w *Watcher) post(fn func()) {
	if err := w.poster.Post(fn); err != nil {
		w.log.WithError(err).Debug("Dropping watcher event")
	}
}
