// Package audit records a trail of lifecycle events: modules loaded and
// unloaded, account status changes and mutating debug API requests.
//
// # Event Types
//
// Plugins: plugin.load, plugin.unload
// Accounts: account.status
// API: api.request
//
// # Usage
//
// A Recorder turns bus signals into events:
//
//	fl, err := audit.NewFileLogger(audit.FileLoggerConfig{BasePath: dir})
//	rec := audit.NewRecorder(audit.NewMultiLogger(fl, audit.NewLogrusLogger(log)))
//	rec.Attach(bus)
//
// Middleware records API requests that change state:
//
//	router.Use(audit.Middleware(fl))
//
// # Storage
//
// FileLogger writes newline-delimited JSON to audit.log and rotates it by
// size, keeping MaxFiles rotated files. ReadLogs returns the newest events
// matching a Filter.
package audit
