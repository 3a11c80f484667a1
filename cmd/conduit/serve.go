package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/conduit/pkg/host"
	"github.com/platinummonkey/conduit/pkg/observability"
	"github.com/platinummonkey/conduit/pkg/plugins"
)

type serveOptions struct {
	addr    string
	noHTTP  bool
	noWatch bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the plugin host",
		Long: `Run the plugin host until interrupted.

The host probes the search paths, restores the saved plugin list, watches
for new plugin files, schedules account keepalives and serves the debug API.`,
		Example: `  # Serve with the defaults
  conduit serve

  # Serve on another port with a SQLite-backed saved list
  CONDUIT_STORAGE_TYPE=sqlite CONDUIT_SQLITE_PATH=conduit.db conduit serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "debug API listen address (host:port)")
	cmd.Flags().BoolVar(&opts.noHTTP, "no-http", false, "disable the debug API")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not watch the search paths")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		addrHost, addrPort, err := splitAddr(opts.addr)
		if err != nil {
			return err
		}
		cfg.Server.Host, cfg.Server.Port = addrHost, addrPort
	}
	if opts.noHTTP {
		cfg.Server.Enabled = false
	}
	if opts.noWatch {
		cfg.Plugins.Watch = false
	}

	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
		HostUI:         cfg.Plugins.UI,
		SearchPaths:    cfg.Plugins.SearchPaths,
		PluginABI:      fmt.Sprintf("%d.%d", plugins.HostMajorVersion, plugins.HostMinorVersion),
	}, log)
	if err != nil {
		return err
	}
	shutdown.Register("otel", providers.Shutdown)

	h, err := host.New(ctx, cfg, log, host.Options{Version: root.version, Shutdown: shutdown})
	if err != nil {
		_ = shutdown.Shutdown(context.Background())
		return err
	}

	log.WithField("version", root.version).Info("Starting conduit")
	return h.Run(ctx)
}
