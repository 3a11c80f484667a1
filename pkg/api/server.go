package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/conduit/pkg/accounts"
	"github.com/platinummonkey/conduit/pkg/audit"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/observability"
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/storage"
)

// Caller runs fn on the control goroutine and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func() error) error
}

// Server is the debug and introspection API. Every handler reaches the
// module manager, registry and accounts through the Caller.
type Server struct {
	loop     Caller
	manager  *plugins.Manager
	accounts *accounts.Manager
	store    storage.Store
	metrics  *observability.Metrics
	health   *observability.HealthChecker
	audit    AuditLog
	limiter  *httputil.RateLimiter
	router   *mux.Router
	log      *logrus.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAccounts exposes the account routes.
func WithAccounts(m *accounts.Manager) Option { return func(s *Server) { s.accounts = m } }

// WithStore exposes the saved list routes.
func WithStore(st storage.Store) Option { return func(s *Server) { s.store = st } }

// WithMetrics serves /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithHealth serves the health routes.
func WithHealth(h *observability.HealthChecker) Option { return func(s *Server) { s.health = h } }

// WithAudit records mutating requests and serves the audit trail.
func WithAudit(a AuditLog) Option { return func(s *Server) { s.audit = a } }

// WithRateLimit limits requests under /api/v1 per client address.
func WithRateLimit(rl *httputil.RateLimiter) Option { return func(s *Server) { s.limiter = rl } }

// NewServer creates the API server
func NewServer(loop Caller, manager *plugins.Manager, log *logrus.Logger, opts ...Option) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		loop:    loop,
		manager: manager,
		router:  mux.NewRouter(),
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware, httputil.RecoveryMiddleware(s.log), httputil.LoggingMiddleware(s.log))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.health != nil {
		observability.RegisterHealthRoutes(s.router, s.health)
	}
	if s.audit != nil {
		s.router.Use(audit.Middleware(s.audit))
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	if s.limiter != nil {
		v1.Use(httputil.RateLimitMiddleware(s.limiter))
	}

	// Module routes
	v1.HandleFunc("/plugins", s.listPlugins).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/probe", s.probePlugin).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/rescan", s.rescanPlugins).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/graph", s.pluginGraph).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/{id}", s.getPlugin).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/{id}", s.destroyPlugin).Methods(http.MethodDelete)
	v1.HandleFunc("/plugins/{id}/load", s.loadPlugin).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/{id}/unload", s.unloadPlugin).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/{id}/reload", s.reloadPlugin).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/{id}/actions", s.listActions).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/{id}/actions/{index:[0-9]+}", s.runAction).Methods(http.MethodPost)
	v1.HandleFunc("/plugins/{id}/ipc", s.listCommands).Methods(http.MethodGet)
	v1.HandleFunc("/plugins/{id}/ipc/{command}", s.callCommand).Methods(http.MethodPost)

	// Protocol routes
	v1.HandleFunc("/protocols", s.listProtocols).Methods(http.MethodGet)
	v1.HandleFunc("/protocols/{id}", s.getProtocol).Methods(http.MethodGet)

	// Account routes
	if s.accounts != nil {
		v1.HandleFunc("/accounts", s.listAccounts).Methods(http.MethodGet)
		v1.HandleFunc("/accounts", s.createAccount).Methods(http.MethodPost)
		v1.HandleFunc("/accounts/{id}", s.deleteAccount).Methods(http.MethodDelete)
		v1.HandleFunc("/accounts/{id}/connect", s.connectAccount).Methods(http.MethodPost)
		v1.HandleFunc("/accounts/{id}/disconnect", s.disconnectAccount).Methods(http.MethodPost)
		v1.HandleFunc("/accounts/{id}/status", s.setAccountStatus).Methods(http.MethodPut)
	}

	// Saved list routes
	if s.store != nil {
		v1.HandleFunc("/saved", s.getSaved).Methods(http.MethodGet)
		v1.HandleFunc("/saved", s.saveCurrent).Methods(http.MethodPut)
		v1.HandleFunc("/saved/restore", s.restoreSaved).Methods(http.MethodPost)
	}

	// Audit trail
	if s.audit != nil {
		v1.HandleFunc("/audit", s.listAudit).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped in OTel HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "conduit.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					return r.Method + " " + tpl
				}
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

// run executes fn on the control goroutine and answers any error it
// returns. It reports whether fn succeeded.
func (s *Server) run(w http.ResponseWriter, r *http.Request, fn func() error) bool {
	if err := s.loop.Call(r.Context(), fn); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}
