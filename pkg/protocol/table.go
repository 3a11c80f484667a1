package protocol

import "fmt"

// Capability names a capability group.
type Capability int

const (
	CapBase Capability = iota
	CapClient
	CapServer
	CapIM
	CapChat
	CapPrivacy
	CapXfer
	CapRoomlist
	CapAttention
	CapMedia
	CapFactory
)

var capabilityNames = [...]string{
	CapBase:      "base",
	CapClient:    "client",
	CapServer:    "server",
	CapIM:        "im",
	CapChat:      "chat",
	CapPrivacy:   "privacy",
	CapXfer:      "xfer",
	CapRoomlist:  "roomlist",
	CapAttention: "attention",
	CapMedia:     "media",
	CapFactory:   "factory",
}

func (c Capability) String() string {
	if c >= 0 && int(c) < len(capabilityNames) {
		return capabilityNames[c]
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// Capabilities lists every capability group in declaration order.
func Capabilities() []Capability {
	caps := make([]Capability, len(capabilityNames))
	for i := range caps {
		caps[i] = Capability(i)
	}
	return caps
}

// Table is an optional capability group.
type Table[T any] struct {
	impl    T
	present bool
	cap     Capability
	owner   *Protocol
}

// Get returns the implementation and whether it is present.
func (t *Table[T]) Get() (T, bool) {
	if t == nil || !t.present {
		var zero T
		return zero, false
	}
	return t.impl, true
}

// Present reports whether the group is set.
func (t *Table[T]) Present() bool {
	return t != nil && t.present
}

func (t *Table[T]) set(impl T) {
	t.impl = impl
	t.present = true
}

func (t *Table[T]) clear() {
	var zero T
	t.impl = zero
	t.present = false
}

func (t *Table[T]) miss() {
	if t != nil && t.owner != nil && t.owner.onDefault != nil {
		t.owner.onDefault(t.owner.id, t.cap)
	}
}

// call invokes fn with the table's implementation, or returns def when the
// table is absent.
func call[T, R any](t *Table[T], def R, fn func(T) R) R {
	impl, ok := t.Get()
	if !ok {
		t.miss()
		return def
	}
	return fn(impl)
}

// do invokes fn with the table's implementation when present.
func do[T any](t *Table[T], fn func(T)) {
	impl, ok := t.Get()
	if !ok {
		t.miss()
		return
	}
	fn(impl)
}
