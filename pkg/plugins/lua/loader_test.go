package lua

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/plugins"
)

const helloScript = `
plugin_info = {
	id = "lua-hello",
	name = "Hello",
	version = "1.2",
	summary = "Says hello",
	author = "someone",
	dependencies = { "lua-base" },
}

loads = 0

function plugin_load(plugin)
	loads = loads + 1
	conduit.log("debug", "loading " .. plugin.id)
	conduit.register_command("greet", function(who) return "hi " .. who end, "string", "string")
	conduit.register_command("count", function() return loads end, "int")
	conduit.register_command("noop", function() end)
	return true
end

function plugin_unload(plugin)
	return true
end
`

const baseScript = `
plugin_info = { id = "lua-base", name = "Base" }
`

func newManager(t *testing.T, scripts map[string]string) (*plugins.Manager, *plugins.Plugin) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()
	for name, src := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}

	m := plugins.NewManager(nil, nil, log)
	m.AddSearchPath(dir)

	loader, err := m.RegisterStatic(New(m, log).Init)
	require.NoError(t, err)
	m.DrainQueue()
	require.True(t, loader.IsLoaded())
	return m, loader
}

func TestLoader_ProbesScripts(t *testing.T) {
	m, loader := newManager(t, map[string]string{
		"hello.lua": helloScript,
		"base.lua":  baseScript,
		"notes.txt": "not a plugin",
	})

	assert.Equal(t, []*plugins.Plugin{loader}, m.Loaders())
	assert.True(t, loader.Invisible())

	hello := m.Find("lua-hello")
	require.NotNil(t, hello)
	assert.Same(t, loader, hello.Loader())
	assert.False(t, hello.IsNative())
	assert.False(t, hello.IsLoaded())
	assert.Equal(t, "Hello", hello.Name())
	assert.Equal(t, "1.2", hello.Info().Version)
	assert.Equal(t, []string{"lua-base"}, hello.Info().Dependencies)

	assert.Len(t, m.FindByExtensions("lua"), 2)
}

func TestLoader_LoadRunsHooksAndRegistersCommands(t *testing.T) {
	m, _ := newManager(t, map[string]string{"hello.lua": helloScript, "base.lua": baseScript})
	hello := m.Find("lua-hello")
	require.NoError(t, m.Load(hello))
	assert.True(t, m.Find("lua-base").IsLoaded(), "dependency loaded first")

	assert.Equal(t, []string{"count", "greet", "noop"}, m.IPCCommands(hello))

	got, err := m.IPCCall(hello, "greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got)

	got, err = m.IPCCall(hello, "count")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = m.IPCCall(hello, "noop")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = m.IPCCall(hello, "greet")
	assert.ErrorIs(t, err, plugins.ErrIPCArgs)

	params, ret, err := m.IPCParams(hello, "greet")
	require.NoError(t, err)
	assert.Equal(t, []plugins.ValueType{plugins.ValueString}, params)
	assert.Equal(t, plugins.ValueString, ret)

	require.NoError(t, m.Unload(hello))
	assert.Empty(t, m.IPCCommands(hello))

	require.NoError(t, m.Load(hello))
	assert.Equal(t, []string{"count", "greet", "noop"}, m.IPCCommands(hello))
	got, err = m.IPCCall(hello, "count")
	require.NoError(t, err)
	assert.Equal(t, 2, got, "state survives unload")
}

func TestLoader_HookFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "returns false",
			src:     `plugin_info = { id = "lua-x" } function plugin_load() return false end`,
			wantErr: "plugin_load returned false",
		},
		{
			name:    "reports its own error",
			src:     `plugin_info = { id = "lua-x" } function plugin_load() conduit.error("no token configured") return false end`,
			wantErr: "no token configured",
		},
		{
			name:    "raises",
			src:     `plugin_info = { id = "lua-x" } function plugin_load() error("boom") end`,
			wantErr: "boom",
		},
		{
			name:    "bad command signature",
			src:     `plugin_info = { id = "lua-x" } function plugin_load() conduit.register_command("c", function() end, "float") end`,
			wantErr: "unknown value type",
		},
		{
			name:    "hook is not a function",
			src:     `plugin_info = { id = "lua-x" } plugin_load = 3`,
			wantErr: "not a function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newManager(t, map[string]string{"x.lua": tt.src})
			p := m.Find("lua-x")
			require.NotNil(t, p)

			err := m.Load(p)
			require.ErrorIs(t, err, plugins.ErrLoadHookFailed)
			assert.Contains(t, p.Error(), tt.wantErr)
			assert.False(t, p.IsLoaded())
		})
	}
}

func TestLoader_RejectsBrokenScripts(t *testing.T) {
	m, _ := newManager(t, map[string]string{
		"syntax.lua":   `plugin_info = {`,
		"noinfo.lua":   `x = 1`,
		"sandbox.lua":  `dofile("/etc/passwd") plugin_info = { id = "lua-sandbox" }`,
		"defaults.lua": `plugin_info = { name = "Defaults" }`,
		"toplevel.lua": `plugin_info = { id = "lua-toplevel" } conduit.register_command("c", function() end)`,
	})

	assert.Nil(t, m.FindWithBasename("syntax.lua"))
	assert.Nil(t, m.FindWithBasename("noinfo.lua"))
	assert.Nil(t, m.Find("lua-sandbox"), "dofile is not available")
	assert.Nil(t, m.Find("lua-toplevel"), "commands are registered from plugin_load")

	p := m.Find("lua-defaults.lua")
	require.NotNil(t, p, "id defaults to the file identity")
	assert.Equal(t, "Defaults", p.Name())
}

func TestLoader_CommandsOnlyRegisterDuringLoad(t *testing.T) {
	m, _ := newManager(t, map[string]string{"late.lua": `
plugin_info = { id = "lua-late" }

function plugin_load()
	conduit.register_command("later", function()
		conduit.register_command("sneaky", function() end)
	end)
	return true
end
`})
	p := m.Find("lua-late")
	require.NotNil(t, p)
	require.NoError(t, m.Load(p))

	_, err := m.IPCCall(p, "later")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only be called from plugin_load")
	assert.Equal(t, []string{"later"}, m.IPCCommands(p))
}

func TestLoader_DestroyClosesStates(t *testing.T) {
	m, loader := newManager(t, map[string]string{"hello.lua": helloScript, "base.lua": baseScript})
	hello := m.Find("lua-hello")
	require.NoError(t, m.Load(hello))
	require.IsType(t, &script{}, hello.Data())

	require.NoError(t, m.Destroy(loader))

	assert.False(t, hello.IsLoaded())
	assert.Nil(t, hello.Data())
	assert.Empty(t, m.FindByExtensions("lua"))
	assert.Empty(t, m.Loaders())
}
