package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

// Metrics holds all Prometheus metrics. It implements plugins.Observer and
// protocol.RegistryObserver.
type Metrics struct {
	// Module metrics
	PluginProbesTotal     *prometheus.CounterVec
	PluginLoadsTotal      *prometheus.CounterVec
	PluginUnloadsTotal    *prometheus.CounterVec
	PluginsLoaded         prometheus.Gauge
	PluginsUnloadable     prometheus.Gauge
	IPCCallsTotal         *prometheus.CounterVec
	ProtocolsRegistered   prometheus.Gauge
	DispatchDefaultsTotal *prometheus.CounterVec
	ForcedDisconnects     prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		PluginProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_plugin_probes_total",
				Help: "Total number of module probes",
			},
			[]string{"result"},
		),
		PluginLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_plugin_loads_total",
				Help: "Total number of module loads",
			},
			[]string{"type", "result"},
		),
		PluginUnloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_plugin_unloads_total",
				Help: "Total number of module unloads",
			},
			[]string{"result"},
		),
		PluginsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_plugins_loaded",
				Help: "Number of loaded modules",
			},
		),
		PluginsUnloadable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_plugins_unloadable",
				Help: "Number of known modules that cannot be loaded",
			},
		),
		IPCCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_ipc_calls_total",
				Help: "Total number of IPC command calls",
			},
			[]string{"result"},
		),
		ProtocolsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_protocols_registered",
				Help: "Number of registered protocols",
			},
		),
		DispatchDefaultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_protocol_dispatch_defaults_total",
				Help: "Dispatches that fell back to a default because a capability table was missing",
			},
			[]string{"capability"},
		),
		ForcedDisconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "conduit_accounts_forced_disconnects_total",
				Help: "Accounts disconnected because their protocol was removed",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_http_requests_total",
				Help: "Total number of debug API requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_http_request_duration_seconds",
				Help:    "Debug API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.PluginProbesTotal,
		m.PluginLoadsTotal,
		m.PluginUnloadsTotal,
		m.PluginsLoaded,
		m.PluginsUnloadable,
		m.IPCCallsTotal,
		m.ProtocolsRegistered,
		m.DispatchDefaultsTotal,
		m.ForcedDisconnects,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry returns the registry the metrics are registered in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PluginProbed(result string) {
	m.PluginProbesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) PluginLoaded(kind, result string) {
	m.PluginLoadsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) PluginUnloaded(result string) {
	m.PluginUnloadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) PluginCounts(loaded, unloadable int) {
	m.PluginsLoaded.Set(float64(loaded))
	m.PluginsUnloadable.Set(float64(unloadable))
}

func (m *Metrics) IPCCalled(result string) {
	m.IPCCallsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ProtocolRegistered(string) { m.ProtocolsRegistered.Inc() }

func (m *Metrics) ProtocolRemoved(string) { m.ProtocolsRegistered.Dec() }

func (m *Metrics) AccountForcedDisconnect(string) { m.ForcedDisconnects.Inc() }

func (m *Metrics) DispatchDefault(_ string, c protocol.Capability) {
	m.DispatchDefaultsTotal.WithLabelValues(c.String()).Inc()
}

// Middleware records request counts and durations per mux route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
