// Package lua is a loader module that runs plugins written in Lua.
//
// Register it as a static module; once loaded it claims the .lua extension
// and the manager probes every script in the search paths through it:
//
//	loader := lua.New(manager, log)
//	p, err := manager.RegisterStatic(loader.Init)
//	manager.DrainQueue()
//
// A script describes itself in a global plugin_info table and may define
// plugin_load and plugin_unload. Each receives a table with the module's id
// and path; returning false fails the hook.
//
//	plugin_info = {
//		id = "lua-hello",
//		name = "Hello",
//		version = "1.0",
//		summary = "Says hello",
//		dependencies = { "core-ping" },
//	}
//
//	function plugin_load(plugin)
//		conduit.log("info", "hello from " .. plugin.id)
//		conduit.register_command("greet", function(who) return "hi " .. who end, "string", "string")
//		return true
//	end
//
// Unloading drops a module's IPC commands, so conduit.register_command only
// works while plugin_load runs; anywhere else it raises an error.
//
// Every script gets its own sandboxed state: only the base, table, string
// and math libraries are opened, and dofile, loadfile and load are removed.
// States are not safe for concurrent use; like the manager they are only
// touched from the control goroutine.
package lua
