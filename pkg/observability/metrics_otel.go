package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

// Observer receives module and protocol lifecycle events.
type Observer interface {
	plugins.Observer
	protocol.RegistryObserver
}

// OTelMetrics records the same events as Metrics through the global OTel
// meter provider.
type OTelMetrics struct {
	probes      metric.Int64Counter
	loads       metric.Int64Counter
	unloads     metric.Int64Counter
	loaded      metric.Int64Gauge
	unloadable  metric.Int64Gauge
	ipcCalls    metric.Int64Counter
	protocols   metric.Int64UpDownCounter
	defaults    metric.Int64Counter
	disconnects metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	return newOTelMetrics(otel.Meter("github.com/platinummonkey/conduit"))
}

func newOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	if m.probes, err = meter.Int64Counter("conduit.plugin.probes",
		metric.WithDescription("Module probes"), metric.WithUnit("{probe}")); err != nil {
		return nil, fmt.Errorf("failed to create probes counter: %w", err)
	}
	if m.loads, err = meter.Int64Counter("conduit.plugin.loads",
		metric.WithDescription("Module loads"), metric.WithUnit("{load}")); err != nil {
		return nil, fmt.Errorf("failed to create loads counter: %w", err)
	}
	if m.unloads, err = meter.Int64Counter("conduit.plugin.unloads",
		metric.WithDescription("Module unloads"), metric.WithUnit("{unload}")); err != nil {
		return nil, fmt.Errorf("failed to create unloads counter: %w", err)
	}
	if m.loaded, err = meter.Int64Gauge("conduit.plugins.loaded",
		metric.WithDescription("Loaded modules")); err != nil {
		return nil, fmt.Errorf("failed to create loaded gauge: %w", err)
	}
	if m.unloadable, err = meter.Int64Gauge("conduit.plugins.unloadable",
		metric.WithDescription("Known modules that cannot be loaded")); err != nil {
		return nil, fmt.Errorf("failed to create unloadable gauge: %w", err)
	}
	if m.ipcCalls, err = meter.Int64Counter("conduit.ipc.calls",
		metric.WithDescription("IPC command calls"), metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("failed to create ipc counter: %w", err)
	}
	if m.protocols, err = meter.Int64UpDownCounter("conduit.protocols.registered",
		metric.WithDescription("Registered protocols")); err != nil {
		return nil, fmt.Errorf("failed to create protocols counter: %w", err)
	}
	if m.defaults, err = meter.Int64Counter("conduit.protocol.dispatch_defaults",
		metric.WithDescription("Dispatches answered by a default")); err != nil {
		return nil, fmt.Errorf("failed to create defaults counter: %w", err)
	}
	if m.disconnects, err = meter.Int64Counter("conduit.accounts.forced_disconnects",
		metric.WithDescription("Accounts disconnected by protocol removal")); err != nil {
		return nil, fmt.Errorf("failed to create disconnects counter: %w", err)
	}
	return m, nil
}

func result(r string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("result", r))
}

func (m *OTelMetrics) PluginProbed(r string) { m.probes.Add(context.Background(), 1, result(r)) }

func (m *OTelMetrics) PluginLoaded(kind, r string) {
	m.loads.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", kind),
		attribute.String("result", r),
	))
}

func (m *OTelMetrics) PluginUnloaded(r string) { m.unloads.Add(context.Background(), 1, result(r)) }

func (m *OTelMetrics) PluginCounts(loaded, unloadable int) {
	m.loaded.Record(context.Background(), int64(loaded))
	m.unloadable.Record(context.Background(), int64(unloadable))
}

func (m *OTelMetrics) IPCCalled(r string) { m.ipcCalls.Add(context.Background(), 1, result(r)) }

func (m *OTelMetrics) ProtocolRegistered(string) { m.protocols.Add(context.Background(), 1) }

func (m *OTelMetrics) ProtocolRemoved(string) { m.protocols.Add(context.Background(), -1) }

func (m *OTelMetrics) AccountForcedDisconnect(id string) {
	m.disconnects.Add(context.Background(), 1, metric.WithAttributes(attribute.String("protocol", id)))
}

func (m *OTelMetrics) DispatchDefault(id string, c protocol.Capability) {
	m.defaults.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("protocol", id),
		attribute.String("capability", c.String()),
	))
}

// Fanout forwards every event to each observer in order.
type Fanout []Observer

func (f Fanout) PluginProbed(r string) {
	for _, o := range f {
		o.PluginProbed(r)
	}
}

func (f Fanout) PluginLoaded(kind, r string) {
	for _, o := range f {
		o.PluginLoaded(kind, r)
	}
}

func (f Fanout) PluginUnloaded(r string) {
	for _, o := range f {
		o.PluginUnloaded(r)
	}
}

func (f Fanout) PluginCounts(loaded, unloadable int) {
	for _, o := range f {
		o.PluginCounts(loaded, unloadable)
	}
}

func (f Fanout) IPCCalled(r string) {
	for _, o := range f {
		o.IPCCalled(r)
	}
}

func (f Fanout) ProtocolRegistered(id string) {
	for _, o := range f {
		o.ProtocolRegistered(id)
	}
}

func (f Fanout) ProtocolRemoved(id string) {
	for _, o := range f {
		o.ProtocolRemoved(id)
	}
}

func (f Fanout) AccountForcedDisconnect(id string) {
	for _, o := range f {
		o.AccountForcedDisconnect(id)
	}
}

func (f Fanout) DispatchDefault(id string, c protocol.Capability) {
	for _, o := range f {
		o.DispatchDefault(id, c)
	}
}
