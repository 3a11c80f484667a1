package protocol

import "fmt"

// ConnectionState is the lifecycle state of a Connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// Account is a user identity on one protocol.
type Account struct {
	ID         string
	Username   string
	Password   string
	ProtocolID string
	Alias      string
	Settings   map[string]any
	Status     Status

	conn *Connection
}

// Connection returns the account's live connection, or nil.
func (a *Account) Connection() *Connection {
	if a == nil {
		return nil
	}
	return a.conn
}

// SetConnection attaches or clears the account's connection.
func (a *Account) SetConnection(conn *Connection) {
	a.conn = conn
	if conn != nil {
		conn.Account = a
	}
}

// IsConnected reports whether the account has a connection in the
// Connected state.
func (a *Account) IsConnected() bool {
	return a.Connection() != nil && a.conn.State == Connected
}

// Setting returns a per-account setting, falling back to def.
func (a *Account) Setting(name string, def any) any {
	if a == nil || a.Settings == nil {
		return def
	}
	if v, ok := a.Settings[name]; ok {
		return v
	}
	return def
}

// Connection is the live session of an account.
type Connection struct {
	ID          string
	Account     *Account
	State       ConnectionState
	DisplayName string
	ProtoData   any
}
