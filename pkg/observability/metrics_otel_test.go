package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOTelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := newOTelMetrics(provider.Meter("test"))
	require.NoError(t, err)

	prom := NewMetrics(nil)
	both := Fanout{m, prom}

	both.PluginProbed("ok")
	both.PluginLoaded("loader", "ok")
	both.PluginUnloaded("ok")
	both.PluginCounts(2, 0)
	both.IPCCalled("ok")
	both.ProtocolRegistered("prpl-x")
	both.AccountForcedDisconnect("prpl-x")
	both.DispatchDefault("prpl-x", protocol.CapMedia)
	both.ProtocolRemoved("prpl-x")

	got := collect(t, reader)
	for _, name := range []string{
		"conduit.plugin.probes",
		"conduit.plugin.loads",
		"conduit.plugin.unloads",
		"conduit.plugins.loaded",
		"conduit.ipc.calls",
		"conduit.protocols.registered",
		"conduit.accounts.forced_disconnects",
		"conduit.protocol.dispatch_defaults",
	} {
		assert.Contains(t, got, name)
	}

	loaded, ok := got["conduit.plugins.loaded"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, loaded.DataPoints, 1)
	assert.Equal(t, int64(2), loaded.DataPoints[0].Value)

	protocols, ok := got["conduit.protocols.registered"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, protocols.DataPoints, 1)
	assert.Equal(t, int64(0), protocols.DataPoints[0].Value)
}
