package lua

import (
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/platinummonkey/conduit/pkg/plugins"
)

// ID is the loader module's id.
const ID = "core-lua"

// Loader runs .lua modules.
type Loader struct {
	manager *plugins.Manager
	log     *logrus.Logger
}

// script is the per-module state kept in Plugin.Data.
type script struct {
	L      *lua.LState
	plugin *plugins.Plugin
	// loading is set while plugin_load runs; commands may only be
	// registered then, since unload drops them all.
	loading bool
}

// New creates a loader whose scripts register IPC commands with manager.
func New(manager *plugins.Manager, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{manager: manager, log: log}
}

// Init is the loader's entry point for Manager.RegisterStatic.
func (l *Loader) Init(p *plugins.Plugin) bool {
	p.Describe(&plugins.Info{
		Magic:        plugins.Magic,
		MajorVersion: plugins.HostMajorVersion,
		MinorVersion: plugins.HostMinorVersion,
		Type:         plugins.TypeLoader,
		Priority:     plugins.PriorityDefault,
		ID:           ID,
		Name:         "Lua Plugin Loader",
		Version:      "1.0",
		Summary:      "Runs plugins written in Lua.",
		Description:  "Probes .lua files and runs each in its own sandboxed interpreter.",
		Flags:        plugins.FlagInvisible,
		ExtraInfo: &plugins.LoaderInfo{
			Exts:    []string{"lua"},
			Probe:   l.probe,
			Load:    l.load,
			Unload:  l.unload,
			Destroy: l.destroy,
		},
	})
	return true
}

func (l *Loader) probe(p *plugins.Plugin) bool {
	L := newState()
	s := &script{L: L, plugin: p}
	l.installAPI(s)

	if err := doFile(L, p.Path()); err != nil {
		l.log.WithError(err).WithField("path", p.Path()).Warn("Lua script failed to run")
		p.SetError(err.Error())
		L.Close()
		return false
	}

	table, ok := L.GetGlobal("plugin_info").(*lua.LTable)
	if !ok {
		p.SetError("plugin_info table is missing")
		L.Close()
		return false
	}

	info := &plugins.Info{
		Magic:         plugins.Magic,
		MajorVersion:  plugins.HostMajorVersion,
		MinorVersion:  plugins.HostMinorVersion,
		Type:          plugins.TypeStandard,
		ID:            stringField(table, "id"),
		Name:          stringField(table, "name"),
		Version:       stringField(table, "version"),
		Summary:       stringField(table, "summary"),
		Description:   stringField(table, "description"),
		Author:        stringField(table, "author"),
		Homepage:      stringField(table, "homepage"),
		UIRequirement: stringField(table, "ui_requirement"),
		Dependencies:  stringList(table, "dependencies"),
	}
	if info.ID == "" {
		info.ID = "lua-" + plugins.Basename(p.Path())
	}

	p.SetData(s)
	p.Describe(info)
	return true
}

func (l *Loader) load(p *plugins.Plugin) bool {
	if s, ok := p.Data().(*script); ok {
		s.loading = true
		defer func() { s.loading = false }()
	}
	return l.hook(p, "plugin_load")
}

func (l *Loader) unload(p *plugins.Plugin) bool {
	return l.hook(p, "plugin_unload")
}

func (l *Loader) hook(p *plugins.Plugin, name string) bool {
	s, ok := p.Data().(*script)
	if !ok {
		p.SetError("lua state is gone")
		return false
	}

	ret, defined, err := callGlobal(s.L, name, l.pluginTable(s))
	if err != nil {
		l.log.WithError(err).WithField("plugin", p.ID()).Warnf("Lua %s failed", name)
		p.SetError(err.Error())
		return false
	}
	if !defined {
		return true
	}
	if !succeeded(ret) {
		if p.Error() == "" {
			p.SetError(fmt.Sprintf("%s returned false", name))
		}
		return false
	}
	return true
}

func (l *Loader) destroy(p *plugins.Plugin) {
	s, ok := p.Data().(*script)
	if !ok {
		return
	}
	s.L.Close()
	p.SetData(nil)
}

func (l *Loader) pluginTable(s *script) *lua.LTable {
	t := s.L.NewTable()
	t.RawSetString("id", lua.LString(s.plugin.ID()))
	t.RawSetString("path", lua.LString(s.plugin.Path()))
	return t
}

// installAPI exposes the conduit table to the script.
func (l *Loader) installAPI(s *script) {
	api := s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			level := L.CheckString(1)
			msg := L.CheckString(2)
			entry := l.log.WithField("plugin", s.plugin.ID())
			switch level {
			case "debug":
				entry.Debug(msg)
			case "warn":
				entry.Warn(msg)
			case "error":
				entry.Error(msg)
			default:
				entry.Info(msg)
			}
			return 0
		},
		"error": func(L *lua.LState) int {
			s.plugin.SetError(L.CheckString(1))
			return 0
		},
		"register_command": func(L *lua.LState) int {
			if !s.loading {
				L.RaiseError("register_command may only be called from plugin_load")
				return 0
			}
			name := L.CheckString(1)
			fn := L.CheckFunction(2)
			ret, params, err := parseSignature(L, 3)
			if err != nil {
				L.ArgError(3, err.Error())
				return 0
			}
			if err := l.manager.IPCRegister(s.plugin, name, fn, marshalFor(L), ret, params...); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"unregister_command": func(L *lua.LState) int {
			l.manager.IPCUnregister(s.plugin, L.CheckString(1))
			return 0
		},
	})
	s.L.SetGlobal("conduit", api)
}

// parseSignature reads "ret", "param"... starting at stack index from.
// A missing return type means void.
func parseSignature(L *lua.LState, from int) (plugins.ValueType, []plugins.ValueType, error) {
	ret := plugins.ValueVoid
	var params []plugins.ValueType
	for i := from; i <= L.GetTop(); i++ {
		name := L.CheckString(i)
		vt, ok := valueTypes[name]
		if !ok {
			return ret, nil, fmt.Errorf("unknown value type %q", name)
		}
		if i == from {
			ret = vt
			continue
		}
		if vt == plugins.ValueVoid {
			return ret, nil, fmt.Errorf("void is not a parameter type")
		}
		params = append(params, vt)
	}
	return ret, params, nil
}
