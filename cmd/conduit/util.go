package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/platinummonkey/conduit/pkg/host"
	"github.com/platinummonkey/conduit/pkg/plugins"
)

func splitAddr(addr string) (string, string, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", "", fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	return h, p, nil
}

// withHost opens a host without the debug API, the watcher or the
// keepalives, runs fn on its control goroutine and closes it.
func withHost(ctx context.Context, root *rootOptions, fn func(h *host.Host) error) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	cfg.Server.Enabled = false
	cfg.Plugins.Watch = false
	cfg.Observability.OTelEnabled = false

	h, err := host.New(ctx, cfg, log, host.Options{Version: root.version})
	if err != nil {
		return err
	}
	if err := h.Open(ctx); err != nil {
		return err
	}
	defer h.Close()
	return h.Loop.Call(ctx, func() error { return fn(h) })
}

// parseArgs converts command line strings to the declared IPC types.
func parseArgs(params []plugins.ValueType, args []string) ([]any, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("%w: want %d arguments, got %d", plugins.ErrIPCArgs, len(params), len(args))
	}
	out := make([]any, len(args))
	for i, arg := range args {
		var err error
		switch params[i] {
		case plugins.ValueBool:
			out[i], err = strconv.ParseBool(arg)
		case plugins.ValueInt:
			out[i], err = strconv.Atoi(arg)
		case plugins.ValueInt64:
			out[i], err = strconv.ParseInt(arg, 10, 64)
		default:
			out[i] = arg
		}
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", plugins.ErrIPCArgs, i+1, err)
		}
	}
	return out, nil
}
