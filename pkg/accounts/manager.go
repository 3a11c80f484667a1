package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/signals"
)

var (
	ErrInvalidAccount   = errors.New("invalid account")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrAccountNotFound  = errors.New("account not found")
	ErrProtocolNotFound = errors.New("protocol not found")
	ErrNotConnected     = errors.New("account not connected")
	ErrUnknownStatus    = errors.New("unknown status")
)

// Manager owns the set of configured accounts.
type Manager struct {
	accounts []*protocol.Account
	byID     map[string]*protocol.Account
	registry *protocol.Registry
	bus      *signals.Bus
	log      *logrus.Logger
}

// NewManager creates an account manager bound to a protocol registry and
// signal bus.
func NewManager(registry *protocol.Registry, bus *signals.Bus, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		byID:     make(map[string]*protocol.Account),
		registry: registry,
		bus:      bus,
		log:      log,
	}
}

// Add creates an account. The protocol does not need to be loaded yet.
func (m *Manager) Add(username, protocolID string) (*protocol.Account, error) {
	if username == "" || protocolID == "" {
		return nil, fmt.Errorf("%w: username and protocol are required", ErrInvalidAccount)
	}
	if _, ok := m.Find(username, protocolID); ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateAccount, username, protocolID)
	}

	acct := &protocol.Account{
		ID:         uuid.NewString(),
		Username:   username,
		ProtocolID: protocolID,
		Settings:   make(map[string]any),
		Status:     protocol.Status{ID: "offline"},
	}
	m.accounts = append(m.accounts, acct)
	m.byID[acct.ID] = acct
	return acct, nil
}

// Get returns the account with the given id.
func (m *Manager) Get(id string) (*protocol.Account, bool) {
	acct, ok := m.byID[id]
	return acct, ok
}

// Find returns the account with the given username on protocolID.
func (m *Manager) Find(username, protocolID string) (*protocol.Account, bool) {
	for _, acct := range m.accounts {
		if acct.Username == username && acct.ProtocolID == protocolID {
			return acct, true
		}
	}
	return nil, false
}

// All returns every account in creation order.
func (m *Manager) All() []*protocol.Account {
	out := make([]*protocol.Account, len(m.accounts))
	copy(out, m.accounts)
	return out
}

// Active returns accounts that have a connection.
func (m *Manager) Active() []*protocol.Account {
	var out []*protocol.Account
	for _, acct := range m.accounts {
		if acct.Connection() != nil {
			out = append(out, acct)
		}
	}
	return out
}

// ActiveFor returns accounts on protocolID that have a connection.
func (m *Manager) ActiveFor(protocolID string) []*protocol.Account {
	var out []*protocol.Account
	for _, acct := range m.accounts {
		if acct.ProtocolID == protocolID && acct.Connection() != nil {
			out = append(out, acct)
		}
	}
	return out
}

// ForceDisconnect disconnects acct, logging rather than returning failures.
func (m *Manager) ForceDisconnect(acct *protocol.Account) {
	if err := m.Disconnect(acct); err != nil && !errors.Is(err, ErrNotConnected) {
		m.log.WithError(err).WithField("account", acct.Username).Warn("Forced disconnect failed")
	}
}

// Remove disconnects and forgets the account.
func (m *Manager) Remove(id string) error {
	acct, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	m.ForceDisconnect(acct)

	delete(m.byID, id)
	for i, a := range m.accounts {
		if a == acct {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			break
		}
	}
	return nil
}

// Connect creates a connection for acct and dispatches Login. A connection
// that the protocol leaves in the Connecting state completes later.
func (m *Manager) Connect(ctx context.Context, acct *protocol.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if acct.Connection() != nil {
		return nil
	}

	p, ok := m.registry.Lookup(acct.ProtocolID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProtocolNotFound, acct.ProtocolID)
	}

	conn := protocol.NewConnection(p, acct)
	conn.State = protocol.Connecting
	acct.SetConnection(conn)

	log := m.log.WithFields(logrus.Fields{"account": acct.Username, "protocol": acct.ProtocolID})
	if err := protocol.Login(p, conn); err != nil {
		conn.State = protocol.Disconnected
		acct.SetConnection(nil)
		log.WithError(err).Warn("Login failed")
		return fmt.Errorf("login %s: %w", acct.Username, err)
	}
	log.WithField("state", conn.State).Info("Account connecting")
	return nil
}

// Disconnect dispatches Close for the account's connection and detaches it.
func (m *Manager) Disconnect(acct *protocol.Account) error {
	conn := acct.Connection()
	if conn == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, acct.Username)
	}

	if p, ok := m.registry.Lookup(acct.ProtocolID); ok {
		protocol.Close(p, conn)
	}
	conn.State = protocol.Disconnected
	acct.SetConnection(nil)

	old := acct.Status
	acct.Status = protocol.Status{ID: "offline"}
	if old.ID != acct.Status.ID {
		m.emit(signals.AccountStatusChanged, acct, old, acct.Status)
	}
	m.log.WithField("account", acct.Username).Info("Account disconnected")
	return nil
}

// SetStatus changes the account's status. statusID must be one of the
// protocol's status types when the protocol is loaded and declares any.
func (m *Manager) SetStatus(acct *protocol.Account, statusID, message string) error {
	p, loaded := m.registry.Lookup(acct.ProtocolID)
	if loaded {
		types := protocol.StatusTypes(p, acct)
		if len(types) > 0 && !hasStatus(types, statusID) {
			return fmt.Errorf("%w: %s for %s", ErrUnknownStatus, statusID, acct.ProtocolID)
		}
	}

	old := acct.Status
	acct.Status = protocol.Status{ID: statusID, Message: message}
	if loaded && acct.Connection() != nil {
		protocol.SetStatus(p, acct, acct.Status)
	}
	m.emit(signals.AccountStatusChanged, acct, old, acct.Status)
	return nil
}

// Actions returns the protocol actions available on the account's
// connection.
func (m *Manager) Actions(acct *protocol.Account) []protocol.Action {
	conn := acct.Connection()
	if conn == nil {
		return nil
	}
	p, ok := m.registry.Lookup(acct.ProtocolID)
	if !ok {
		return nil
	}
	return protocol.Actions(p, conn)
}

// NotifyActionsChanged tells listeners that the account's action list is
// stale.
func (m *Manager) NotifyActionsChanged(acct *protocol.Account) {
	m.emit(signals.AccountActionsChanged, acct)
}

func (m *Manager) emit(signal string, args ...any) {
	if m.bus != nil {
		m.bus.Emit(signal, args...)
	}
}

func hasStatus(types []protocol.StatusType, id string) bool {
	for _, t := range types {
		if t.ID == id {
			return true
		}
	}
	return false
}
