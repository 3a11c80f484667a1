// Package host assembles a running conduit instance.
//
// New wires the module manager, protocol registry, accounts and signal bus
// to one control loop, opens the saved-list backend and, when enabled,
// builds the debug API server. Open brings the core up; Run additionally
// serves the API, watches the search paths, schedules keepalives and
// persists the saved list on every load and unload until its context ends.
//
//	h, err := host.New(ctx, cfg, log, host.Options{Version: version})
//	if err != nil {
//		return err
//	}
//	return h.Run(ctx)
package host
