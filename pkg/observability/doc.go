// Package observability provides logging, Prometheus metrics, OpenTelemetry
// export and health checks for the conduit host.
//
// # Logging
//
//	log := observability.NewLogger(logrus.InfoLevel, "json", os.Stderr)
//	observability.FromContext(ctx, log).Info("request handled")
//
// FromContext adds the request id and, when a span is recording, the trace
// and span ids.
//
// # Metrics
//
// Metrics implements plugins.Observer and protocol.RegistryObserver, so it
// is handed straight to the module manager and protocol registry:
//
//	metrics := observability.NewMetrics(nil)
//	manager.SetObserver(metrics)
//	registry.SetObserver(metrics)
//	router.Handle("/metrics", metrics.Handler())
//
// OTelMetrics records the same events through the OTel meter provider;
// Fanout combines both.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "conduit",
//		Insecure:    true,
//	}, log)
//	defer providers.Shutdown(ctx)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.Add("storage", store, true)
//	observability.RegisterHealthRoutes(router, checker)
package observability
