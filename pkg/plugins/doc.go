// Package plugins discovers, versions, loads and unloads extension modules.
//
// # Modules
//
// A native module is a Go plugin exporting
//
//	func PluginInit(p *plugins.Plugin) bool
//
// which calls p.Describe with its metadata and returns true. Files with any
// other extension are handed to a loaded loader module that claims the
// extension (see LoaderInfo). Modules built into the host are registered
// with RegisterStatic.
//
// # Lifecycle
//
//	probe -> queue -> load -> unload -> destroy
//
// Probe reads a module's metadata without running it. Metadata with a
// legacy magic, an incompatible ABI version or a foreign UI requirement
// leaves the descriptor known but unloadable, with Error explaining why.
// Anything worse (a missing file, no entry point, an unrecognized magic, a
// protocol module without base operations) fails the probe outright.
//
// DrainQueue loads loaders and protocol modules as soon as they are probed.
// Standard modules wait for an explicit Load, usually from LoadSaved.
//
// Load brings up dependencies first. Unload takes dependents down first.
//
// # IPC
//
// Modules expose named commands to each other without linking:
//
//	m.IPCRegister(p, "ping", func() string { return "pong" }, nil, plugins.ValueString)
//	out, err := m.IPCCall(p, "ping")
//
// # Concurrency
//
// Manager has no locks. It is driven from one control goroutine; Watcher
// posts its work there through a Poster.
package plugins
