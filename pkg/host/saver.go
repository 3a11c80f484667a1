package host

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/conduit/pkg/observability"
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/signals"
	"github.com/platinummonkey/conduit/pkg/storage"
)

// saver persists the "load on startup" list whenever a module is loaded or
// unloaded. Snapshots are taken on the control goroutine; writes happen on
// the saver's own goroutine and only the latest pending snapshot is kept.
type saver struct {
	manager *plugins.Manager
	store   storage.StateWriter
	pending chan []string
	subs    []signals.ID
	log     *logrus.Logger
}

func newSaver(manager *plugins.Manager, store storage.StateWriter, log *logrus.Logger) *saver {
	return &saver{
		manager: manager,
		store:   store,
		pending: make(chan []string, 1),
		log:     log,
	}
}

// attach subscribes to lifecycle signals. Control goroutine only.
func (s *saver) attach() {
	bus := s.manager.Bus()
	for _, sig := range []string{signals.PluginLoad, signals.PluginUnload} {
		s.subs = append(s.subs, bus.Connect(s, sig, func(...any) { s.snapshot() }))
	}
}

// detach drops the subscriptions so shutdown unloads are not saved.
// Control goroutine only.
func (s *saver) detach() {
	bus := s.manager.Bus()
	for _, id := range s.subs {
		bus.Disconnect(id)
	}
	s.subs = nil
}

func (s *saver) snapshot() {
	paths := s.manager.SavedList()
	if paths == nil {
		paths = []string{}
	}
	for {
		select {
		case s.pending <- paths:
			return
		default:
		}
		// replace the stale snapshot
		select {
		case <-s.pending:
		default:
		}
	}
}

// run writes snapshots until ctx is cancelled, then flushes the last one.
// A panicking backend stops the host with an error.
func (s *saver) run(ctx context.Context) (err error) {
	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			err = fmt.Errorf("plugin list saver: %w", perr)
		}
	}()
	for {
		select {
		case paths := <-s.pending:
			s.write(ctx, paths)
		case <-ctx.Done():
			select {
			case paths := <-s.pending:
				s.write(context.Background(), paths)
			default:
			}
			return nil
		}
	}
}

func (s *saver) write(ctx context.Context, paths []string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	state := &storage.SavedState{Plugins: paths, UpdatedAt: time.Now().UTC()}
	if err := s.store.SaveState(ctx, state); err != nil {
		s.log.WithError(err).Warn("Failed to save plugin list")
		return
	}
	s.log.WithField("plugins", len(paths)).Debug("Saved plugin list")
}
