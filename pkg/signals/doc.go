// Package signals provides the synchronous, owner-scoped signal bus used by
// the plugin loader and the account manager.
//
// Every subscription is tagged with an owner handle. When a plugin unloads,
// the loader calls DisconnectByOwner with the plugin so nothing keeps calling
// into code that is no longer live.
//
//	bus := signals.NewBus(logger)
//	bus.Connect(myPlugin, signals.PluginLoad, func(args ...any) {
//		p := args[0].(*plugins.Plugin)
//		log.Printf("loaded %s", p.ID())
//	})
//
// Emit runs handlers in subscription order on the caller's goroutine.
package signals
