package audit

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/protocols/loopback"
	"github.com/platinummonkey/conduit/pkg/signals"
)

func TestRecorder(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	registry := protocol.NewRegistry(log)
	bus := signals.NewBus(log)
	manager := plugins.NewManager(registry, bus, log)

	mem := &memLogger{}
	rec := NewRecorder(mem, log)
	rec.Attach(bus)

	p, err := manager.RegisterStatic(loopback.NewNetwork().Init)
	require.NoError(t, err)
	manager.DrainQueue()
	require.True(t, p.IsLoaded())

	acct := &protocol.Account{ID: "1", Username: "alice", ProtocolID: loopback.ProtocolID}
	bus.Emit(signals.AccountStatusChanged, acct, protocol.Status{ID: "offline"}, protocol.Status{ID: "away", Message: "lunch"})

	require.NoError(t, manager.Unload(p))

	require.Len(t, mem.events, 3)
	load, status, unload := mem.events[0], mem.events[1], mem.events[2]

	assert.Equal(t, EventTypePluginLoad, load.Type)
	assert.Equal(t, loopback.PluginID, load.PluginID)
	assert.Equal(t, "protocol", load.PluginType)

	assert.Equal(t, EventTypeAccountStatus, status.Type)
	assert.Equal(t, "alice", status.Username)
	assert.Equal(t, "offline", status.FromStatus)
	assert.Equal(t, "away", status.ToStatus)
	assert.Equal(t, "lunch", status.Metadata["status_message"])

	assert.Equal(t, EventTypePluginUnload, unload.Type)

	rec.Detach()
	assert.Zero(t, bus.OwnerCount(rec))
	bus.Emit(signals.AccountStatusChanged, acct, protocol.Status{}, protocol.Status{ID: "offline"})
	assert.Len(t, mem.events, 3)
}

func TestRecorder_IgnoresMalformedArgs(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	bus := signals.NewBus(log)

	mem := &memLogger{}
	rec := NewRecorder(mem, log)
	rec.Attach(bus)

	bus.Emit(signals.PluginLoad)
	bus.Emit(signals.PluginLoad, "not a plugin")
	bus.Emit(signals.AccountStatusChanged, "x")
	assert.Empty(t, mem.events)
}
