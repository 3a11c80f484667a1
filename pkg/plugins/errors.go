package plugins

import "errors"

var (
	// Probe-fatal errors. No descriptor survives them.
	ErrNotFound          = errors.New("plugin file not found")
	ErrOpen              = errors.New("unable to open plugin")
	ErrNoEntry           = errors.New("plugin entry point not found")
	ErrEntryFailed       = errors.New("plugin entry point failed")
	ErrNoLoader          = errors.New("no loader for plugin")
	ErrUnrecognizedMagic = errors.New("unrecognized plugin magic")
	ErrProtocolContract  = errors.New("protocol plugin missing required base operations")
	ErrLoaderContract    = errors.New("loader plugin missing loader info")

	// Load and unload errors.
	ErrUnloadable         = errors.New("plugin is unloadable")
	ErrNotLoaded          = errors.New("plugin is not loaded")
	ErrDependencyNotFound = errors.New("plugin dependency not found")
	ErrDependencyFailed   = errors.New("plugin dependency failed to load")
	ErrDependencyCycle    = errors.New("plugin dependency cycle")
	ErrLoadHookFailed     = errors.New("plugin load hook failed")
	ErrUnloadHookFailed   = errors.New("plugin unload hook failed")
	ErrDuplicateProtocol  = errors.New("protocol already provided by another plugin")
	ErrProtocolReleased   = errors.New("protocol object released; probe the plugin again")
	ErrDestroyed          = errors.New("plugin destroyed")

	// ErrIPCNotFound is returned when calling an unregistered IPC command.
	ErrIPCNotFound = errors.New("ipc command not found")
	// ErrIPCArgs is returned by ReflectMarshal on an argument mismatch.
	ErrIPCArgs = errors.New("ipc argument mismatch")
)
