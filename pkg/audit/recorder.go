package audit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/signals"
)

// Recorder turns lifecycle signals into audit events. Signals are emitted
// on the control goroutine, so Attach, Detach and the handlers run there.
type Recorder struct {
	logger Logger
	log    logrus.FieldLogger
	bus    *signals.Bus
	subs   []signals.ID
}

// NewRecorder creates a recorder writing to logger.
func NewRecorder(logger Logger, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.New()
	}
	return &Recorder{logger: logger, log: log}
}

// Attach subscribes to the module and account signals on bus.
func (r *Recorder) Attach(bus *signals.Bus) {
	r.bus = bus
	r.subs = append(r.subs,
		bus.Connect(r, signals.PluginLoad, func(args ...any) { r.plugin(EventTypePluginLoad, args) }),
		bus.Connect(r, signals.PluginUnload, func(args ...any) { r.plugin(EventTypePluginUnload, args) }),
		bus.Connect(r, signals.AccountStatusChanged, r.accountStatus),
	)
}

// Detach drops the subscriptions.
func (r *Recorder) Detach() {
	if r.bus == nil {
		return
	}
	for _, id := range r.subs {
		r.bus.Disconnect(id)
	}
	r.subs = nil
	r.bus = nil
}

func (r *Recorder) plugin(t EventType, args []any) {
	if len(args) == 0 {
		return
	}
	p, ok := args[0].(*plugins.Plugin)
	if !ok {
		return
	}
	verb := "Loaded"
	if t == EventTypePluginUnload {
		verb = "Unloaded"
	}
	r.record(&Event{
		Type:       t,
		PluginID:   p.ID(),
		PluginName: p.Name(),
		PluginType: p.Type().String(),
		PluginPath: p.Path(),
		Message:    fmt.Sprintf("%s %s", verb, p.ID()),
	})
}

func (r *Recorder) accountStatus(args ...any) {
	if len(args) < 3 {
		return
	}
	acct, ok := args[0].(*protocol.Account)
	if !ok {
		return
	}
	from, _ := args[1].(protocol.Status)
	to, _ := args[2].(protocol.Status)
	e := &Event{
		Type:       EventTypeAccountStatus,
		AccountID:  acct.ID,
		Username:   acct.Username,
		ProtocolID: acct.ProtocolID,
		FromStatus: from.ID,
		ToStatus:   to.ID,
		Message:    fmt.Sprintf("%s: %s -> %s", acct.Username, from.ID, to.ID),
	}
	if to.Message != "" {
		e.Metadata = map[string]any{"status_message": to.Message}
	}
	r.record(e)
}

func (r *Recorder) record(e *Event) {
	if err := r.logger.Log(context.Background(), e); err != nil {
		r.log.WithError(err).WithField("event", e.Type).Warn("Failed to write audit event")
	}
}
