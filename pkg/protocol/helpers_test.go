package protocol

import (
	"io"

	"github.com/sirupsen/logrus"
)

type stubBase struct {
	logins []*Connection
	closes []*Connection
	// closedWhileReleased records Close calls that arrived after Release.
	closedWhileReleased int
	proto               *Protocol
}

func (b *stubBase) ListIcon(*Account, *Buddy) string { return "stub" }

func (b *stubBase) StatusTypes(*Account) []StatusType {
	return []StatusType{{ID: "available", Name: "Available", Primitive: StatusAvailable, UserSettable: true}}
}

func (b *stubBase) Login(conn *Connection) error {
	b.logins = append(b.logins, conn)
	conn.State = Connected
	return nil
}

func (b *stubBase) Close(conn *Connection) {
	if b.proto != nil && b.proto.Released() {
		b.closedWhileReleased++
	}
	b.closes = append(b.closes, conn)
	conn.State = Disconnected
}

type echoIM struct {
	UnimplementedIM
	sent []string
}

func (e *echoIM) Send(_ *Connection, who, message string, _ MessageFlags) int {
	e.sent = append(e.sent, who+":"+message)
	return len(message)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func mustNew(t interface{ Fatalf(string, ...any) }, id, name string, base Base, opts ...Option) *Protocol {
	p, err := New(id, name, base, opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", id, err)
	}
	return p
}
