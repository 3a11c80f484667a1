package protocol

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AccountSource exposes the active accounts bound to a protocol.
type AccountSource interface {
	// ActiveFor returns every connected or connecting account on protocolID.
	ActiveFor(protocolID string) []*Account
	// ForceDisconnect tears down the account's connection.
	ForceDisconnect(acct *Account)
}

// DialogCloser closes UI state owned by an object.
type DialogCloser interface {
	CloseDialogs(owner any)
}

// SignalDetacher drops every signal subscription held by an owner.
type SignalDetacher interface {
	DisconnectByOwner(owner any) int
}

// RegistryObserver receives registry events for metrics.
type RegistryObserver interface {
	ProtocolRegistered(id string)
	ProtocolRemoved(id string)
	AccountForcedDisconnect(protocolID string)
	DispatchDefault(protocolID string, c Capability)
}

// Registry maps protocol ids to protocols and owns their lifetime.
type Registry struct {
	protocols map[string]*Protocol
	accounts  AccountSource
	dialogs   DialogCloser
	signals   SignalDetacher
	observer  RegistryObserver
	log       *logrus.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		protocols: make(map[string]*Protocol),
		log:       log,
	}
}

// SetAccountSource sets where Remove finds accounts to disconnect.
func (r *Registry) SetAccountSource(src AccountSource) { r.accounts = src }

// SetDialogCloser sets the UI hook used when a protocol is removed.
func (r *Registry) SetDialogCloser(dc DialogCloser) { r.dialogs = dc }

// SetSignalDetacher sets the signal bus used when a protocol is removed.
func (r *Registry) SetSignalDetacher(sd SignalDetacher) { r.signals = sd }

// SetObserver sets the metrics observer.
func (r *Registry) SetObserver(o RegistryObserver) { r.observer = o }

// Register adds p. A protocol with the same id must not already be
// registered.
func (r *Registry) Register(p *Protocol) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := r.protocols[p.id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, p.id)
	}

	r.protocols[p.id] = p
	if r.observer != nil {
		p.SetDefaultObserver(r.observer.DispatchDefault)
		r.observer.ProtocolRegistered(p.id)
	}
	r.log.WithField("protocol", p.id).Debug("Registered protocol")
	return nil
}

// Remove disconnects every active account on p, then releases p.
func (r *Registry) Remove(p *Protocol) error {
	if p == nil {
		return fmt.Errorf("%w: nil protocol", ErrNotRegistered)
	}
	registered, ok := r.protocols[p.id]
	if !ok || registered != p {
		return fmt.Errorf("%w: %s", ErrNotRegistered, p.id)
	}

	log := r.log.WithField("protocol", p.id)

	if r.accounts != nil {
		for _, acct := range r.accounts.ActiveFor(p.id) {
			log.WithField("account", acct.Username).Info("Disconnecting account of removed protocol")
			r.accounts.ForceDisconnect(acct)
			if r.observer != nil {
				r.observer.AccountForcedDisconnect(p.id)
			}
		}
	}

	delete(r.protocols, p.id)

	if r.dialogs != nil {
		r.dialogs.CloseDialogs(p)
	}
	if r.signals != nil {
		r.signals.DisconnectByOwner(p)
	}
	p.Release()

	if r.observer != nil {
		r.observer.ProtocolRemoved(p.id)
	}
	log.Debug("Removed protocol")
	return nil
}

// Lookup returns the protocol registered under id.
func (r *Registry) Lookup(id string) (*Protocol, bool) {
	p, ok := r.protocols[id]
	return p, ok
}

// All returns every registered protocol sorted by name.
func (r *Registry) All() []*Protocol {
	out := make([]*Protocol, 0, len(r.protocols))
	for _, p := range r.protocols {
		out = append(out, p)
	}
	SortByName(out)
	return out
}

// Len returns the number of registered protocols.
func (r *Registry) Len() int { return len(r.protocols) }

// Shutdown removes every registered protocol.
func (r *Registry) Shutdown() {
	for _, p := range r.All() {
		if err := r.Remove(p); err != nil {
			r.log.WithError(err).Warn("Failed to remove protocol during shutdown")
		}
	}
}
