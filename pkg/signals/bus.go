package signals

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Signal names emitted by the core.
const (
	// PluginLoad is emitted with the *plugins.Plugin after a successful load.
	PluginLoad = "plugin-load"
	// PluginUnload is emitted with the *plugins.Plugin after an unload.
	PluginUnload = "plugin-unload"
	// AccountStatusChanged is emitted with (account, old status, new status).
	AccountStatusChanged = "account-status-changed"
	// AccountActionsChanged is emitted with the account.
	AccountActionsChanged = "account-actions-changed"
)

// Handler receives the signal arguments.
type Handler func(args ...any)

// ID identifies one subscription.
type ID uint64

type subscription struct {
	id      ID
	owner   any
	handler Handler
}

// Bus is a synchronous signal bus. It is not safe for concurrent use; it
// belongs to the control goroutine like the rest of the core.
type Bus struct {
	subs   map[string][]subscription
	nextID ID
	log    *logrus.Logger
}

// NewBus creates a bus. A nil logger gets a default one.
func NewBus(log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.New()
	}
	return &Bus{
		subs: make(map[string][]subscription),
		log:  log,
	}
}

// Connect subscribes handler to signal on behalf of owner. owner must be
// comparable; it is typically the *plugins.Plugin or *protocol.Protocol that
// owns the handler code.
func (b *Bus) Connect(owner any, signal string, handler Handler) ID {
	b.nextID++
	b.subs[signal] = append(b.subs[signal], subscription{
		id:      b.nextID,
		owner:   owner,
		handler: handler,
	})
	return b.nextID
}

// Disconnect removes a single subscription and reports whether it existed.
func (b *Bus) Disconnect(id ID) bool {
	for signal, list := range b.subs {
		for i, s := range list {
			if s.id == id {
				b.subs[signal] = append(list[:i:i], list[i+1:]...)
				return true
			}
		}
	}
	return false
}

// DisconnectByOwner removes every subscription owned by owner and returns how
// many were removed.
func (b *Bus) DisconnectByOwner(owner any) int {
	removed := 0
	for signal, list := range b.subs {
		kept := make([]subscription, 0, len(list))
		for _, s := range list {
			if s.owner == owner {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(b.subs, signal)
		} else {
			b.subs[signal] = kept
		}
	}
	return removed
}

// Emit calls every handler connected to signal. A handler that panics is
// logged and skipped; the remaining handlers still run.
func (b *Bus) Emit(signal string, args ...any) {
	// snapshot so handlers may connect or disconnect while we iterate
	list := append([]subscription(nil), b.subs[signal]...)
	for _, s := range list {
		b.invoke(signal, s, args)
	}
}

func (b *Bus) invoke(signal string, s subscription, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("signal", signal).Errorf("signal handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	s.handler(args...)
}

// Count returns the number of handlers connected to signal.
func (b *Bus) Count(signal string) int {
	return len(b.subs[signal])
}

// OwnerCount returns the number of subscriptions held by owner.
func (b *Bus) OwnerCount(owner any) int {
	n := 0
	for _, list := range b.subs {
		for _, s := range list {
			if s.owner == owner {
				n++
			}
		}
	}
	return n
}
