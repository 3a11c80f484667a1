package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/conduit/pkg/accounts"
	"github.com/platinummonkey/conduit/pkg/api"
	"github.com/platinummonkey/conduit/pkg/async"
	"github.com/platinummonkey/conduit/pkg/audit"
	"github.com/platinummonkey/conduit/pkg/config"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/observability"
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/plugins/lua"
	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/protocols/loopback"
	"github.com/platinummonkey/conduit/pkg/signals"
	"github.com/platinummonkey/conduit/pkg/storage"
	"github.com/platinummonkey/conduit/pkg/webhooks"
)

// Options tune New.
type Options struct {
	// Version is reported by the health endpoints.
	Version string
	// Store overrides the backend selected by the configuration.
	Store storage.Store
	// Shutdown receives the host's cleanup steps. A new manager is created
	// when nil.
	Shutdown *observability.ShutdownManager
	// Statics are registered before the built-in modules.
	Statics []plugins.EntryFunc
}

// Host wires the core together: the control loop, the module manager, the
// protocol registry, accounts, persistence and the debug API.
type Host struct {
	Config   *config.Config
	Log      *logrus.Logger
	Loop     *async.Loop
	Registry *protocol.Registry
	Bus      *signals.Bus
	Plugins  *plugins.Manager
	Accounts *accounts.Manager
	Store    storage.Store
	Metrics  *observability.Metrics
	Network  *loopback.Network
	Shutdown *observability.ShutdownManager
	// Audit is nil unless the audit trail or a webhook is configured.
	Audit *audit.MultiLogger

	recorder   *audit.Recorder
	notifier   *webhooks.Notifier
	keepalives *accounts.Keepalives
	watcher    *plugins.Watcher
	saver      *saver
	statics    []plugins.EntryFunc
	httpServer *http.Server
	limiter    *httputil.RateLimiter
	stopLoop   context.CancelFunc
	closeOnce  sync.Once
}

// New builds a host from cfg. Nothing runs until Open or Run.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts Options) (*Host, error) {
	if log == nil {
		log = logrus.New()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = OpenStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Type, err)
		}
	}

	sm := opts.Shutdown
	if sm == nil {
		sm = observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)
	}

	h := &Host{
		Config:   cfg,
		Log:      log,
		Loop:     async.NewLoop(cfg.Plugins.QueueDepth, log),
		Registry: protocol.NewRegistry(log),
		Bus:      signals.NewBus(log),
		Store:    store,
		Network:  loopback.NewNetwork(),
		Shutdown: sm,
	}
	h.Plugins = plugins.NewManager(h.Registry, h.Bus, log)
	h.Plugins.SetHostUI(cfg.Plugins.UI)
	for _, dir := range cfg.Plugins.SearchPaths {
		h.Plugins.AddSearchPath(dir)
	}
	h.Accounts = accounts.NewManager(h.Registry, h.Bus, log)
	h.Registry.SetAccountSource(h.Accounts)
	h.Registry.SetSignalDetacher(h.Bus)

	var observers observability.Fanout
	if cfg.Observability.MetricsEnabled {
		h.Metrics = observability.NewMetrics(prometheus.NewRegistry())
		observers = append(observers, h.Metrics)
	}
	if cfg.Observability.OTelEnabled {
		om, err := observability.NewOTelMetrics()
		if err != nil {
			return nil, fmt.Errorf("create otel instruments: %w", err)
		}
		observers = append(observers, om)
	}
	if len(observers) > 0 {
		h.Plugins.SetObserver(observers)
		h.Registry.SetObserver(observers)
	}

	var sinks []audit.Logger
	var trail api.AuditLog
	if cfg.Audit.Enabled {
		fl, err := audit.NewFileLogger(audit.FileLoggerConfig{
			BasePath: cfg.Audit.Dir,
			MaxSize:  cfg.Audit.MaxSize,
			MaxFiles: cfg.Audit.MaxFiles,
		})
		if err != nil {
			return nil, fmt.Errorf("open audit trail: %w", err)
		}
		sinks = append(sinks, fl, audit.NewLogrusLogger(log.WithField("component", "audit")))
	}
	if len(cfg.Webhooks) > 0 {
		n, err := webhooks.New(webhookConfig(cfg.Webhooks), log.WithField("component", "webhooks"))
		if err != nil {
			return nil, fmt.Errorf("configure webhooks: %w", err)
		}
		h.notifier = n
		sinks = append(sinks, n)
	}
	if len(sinks) > 0 {
		h.Audit = audit.NewMultiLogger(sinks...)
		h.recorder = audit.NewRecorder(h.Audit, log)
		if cfg.Audit.Enabled {
			trail = h.Audit
		}
	}

	h.statics = append(append(h.statics, opts.Statics...), lua.New(h.Plugins, log).Init, h.Network.Init)
	h.saver = newSaver(h.Plugins, store, log)
	h.keepalives = accounts.NewKeepalives(h.Accounts, h.Loop, log)
	if cfg.Plugins.Watch {
		h.watcher = plugins.NewWatcher(h.Plugins, h.Loop, cfg.Plugins.SearchPaths, cfg.Plugins.WatchDebounce, log)
	}

	if cfg.Server.Enabled {
		health := observability.NewHealthChecker(opts.Version)
		health.Add("storage", store, true)
		health.Add("control_loop", observability.PingFunc(func(ctx context.Context) error {
			return h.Loop.Call(ctx, func() error { return nil })
		}), true)

		apiOpts := []api.Option{api.WithAccounts(h.Accounts), api.WithStore(store), api.WithHealth(health)}
		if h.Metrics != nil {
			apiOpts = append(apiOpts, api.WithMetrics(h.Metrics))
		}
		if trail != nil {
			apiOpts = append(apiOpts, api.WithAudit(trail))
		}
		if cfg.Server.RateLimit > 0 {
			h.limiter = httputil.NewRateLimiter(httputil.RateLimitConfig{
				RequestsPerWindow: cfg.Server.RateLimit,
				WindowDuration:    time.Minute,
				BurstSize:         cfg.Server.RateLimitBurst,
			})
			apiOpts = append(apiOpts, api.WithRateLimit(h.limiter))
		}
		server := api.NewServer(h.Loop, h.Plugins, log, apiOpts...)
		h.httpServer = &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      server.Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
	}

	sm.Register("storage", func(context.Context) error { return store.Close() })
	if h.Audit != nil {
		sm.Register("audit", func(context.Context) error { return h.Audit.Close() })
	}
	sm.Register("core", h.stopCore)
	return h, nil
}

// Open starts the control loop, registers the built-in modules, probes the
// search paths and loads the saved list.
func (h *Host) Open(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	h.stopLoop = stopLoop
	go h.Loop.Run(loopCtx)

	// read before entering the loop so a slow backend does not hold the
	// control goroutine
	state, err := h.Store.LoadState(ctx)
	if err != nil {
		h.Log.WithError(err).Warn("Failed to read saved plugin list; starting with none")
		state = &storage.SavedState{}
	}

	if err := h.Loop.Call(ctx, func() error { return h.start(state.Plugins) }); err != nil {
		h.Close()
		return err
	}
	return nil
}

func (h *Host) start(saved []string) error {
	if h.recorder != nil {
		h.recorder.Attach(h.Bus)
	}
	for _, init := range h.statics {
		if _, err := h.Plugins.RegisterStatic(init); err != nil {
			return fmt.Errorf("register built-in plugin: %w", err)
		}
	}
	h.Plugins.DrainQueue()
	h.Plugins.ProbeAll("")

	restored := h.Plugins.LoadSaved(saved)
	h.saver.attach()
	h.Log.WithFields(logrus.Fields{
		"known":     len(h.Plugins.All()),
		"loaded":    len(h.Plugins.Loaded()),
		"restored":  len(restored),
		"protocols": h.Registry.Len(),
	}).Info("Plugin host started")
	return nil
}

// Run opens the host and serves until ctx is cancelled or a component
// fails, then closes it.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Open(ctx); err != nil {
		return err
	}
	defer h.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.saver.run(gctx) })

	if h.watcher != nil {
		for _, dir := range h.Config.Plugins.SearchPaths {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				h.Log.WithError(err).WithField("dir", dir).Debug("Cannot create plugin directory")
			}
		}
		g.Go(func() error {
			if err := h.watcher.Run(gctx); err != nil {
				h.Log.WithError(err).Warn("Plugin watcher stopped")
			}
			return nil
		})
	}

	if err := h.keepalives.Start(h.Config.Plugins.KeepaliveSchedule); err != nil {
		h.Log.WithError(err).Warn("Keepalives disabled")
	} else {
		h.Shutdown.Register("keepalives", func(context.Context) error {
			h.keepalives.Stop()
			return nil
		})
	}

	if h.limiter != nil {
		g.Go(func() error { return h.limiter.Run(gctx) })
	}
	if h.notifier != nil {
		g.Go(func() error { return h.notifier.Run(gctx) })
	}

	if h.httpServer != nil {
		g.Go(func() error {
			h.Log.WithField("addr", h.httpServer.Addr).Info("Debug API listening")
			if err := h.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), h.Config.Server.ShutdownTimeout)
			defer cancel()
			return h.httpServer.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// Close runs the shutdown steps in reverse order and stops the control
// loop. It is safe to call more than once.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.shutdown()
		if h.stopLoop != nil {
			h.stopLoop()
			<-h.Loop.Done()
		}
	})
}

func (h *Host) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), h.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := h.Shutdown.Shutdown(ctx); err != nil {
		h.Log.WithError(err).Warn("Shutdown finished with errors")
	}
}

// stopCore unloads every module and removes every protocol on the control
// goroutine.
func (h *Host) stopCore(ctx context.Context) error {
	return h.Loop.Call(ctx, func() error {
		h.saver.detach()
		h.Plugins.Shutdown()
		h.Registry.Shutdown()
		if h.recorder != nil {
			h.recorder.Detach()
		}
		return nil
	})
}

func webhookConfig(hooks []config.WebhookConfig) webhooks.Config {
	var cfg webhooks.Config
	for _, hook := range hooks {
		ep := webhooks.Endpoint{URL: hook.URL, Secret: hook.Secret}
		for _, e := range hook.Events {
			ep.Events = append(ep.Events, audit.EventType(e))
		}
		cfg.Endpoints = append(cfg.Endpoints, ep)
	}
	return cfg
}
