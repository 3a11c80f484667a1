package plugins

import "fmt"

// Command is a named operation a module exposes to other modules.
type Command struct {
	Func    any
	Marshal MarshalFunc
	Params  []ValueType
	Return  ValueType
}

// IPCRegister registers or replaces command name on p. A nil marshal uses
// ReflectMarshal.
func (m *Manager) IPCRegister(p *Plugin, name string, fn any, marshal MarshalFunc, ret ValueType, params ...ValueType) error {
	if p == nil || name == "" || fn == nil {
		return fmt.Errorf("%w: invalid registration", ErrIPCArgs)
	}
	if marshal == nil {
		marshal = ReflectMarshal
	}
	if p.ipc == nil {
		p.ipc = make(map[string]*Command)
	}
	declared := make([]ValueType, len(params))
	copy(declared, params)
	p.ipc[name] = &Command{Func: fn, Marshal: marshal, Params: declared, Return: ret}
	m.log.WithField("plugin", p.ID()).Debugf("Registered IPC command %s", name)
	return nil
}

// IPCUnregister removes one command. The table is dropped with its last
// command.
func (m *Manager) IPCUnregister(p *Plugin, name string) {
	if p == nil || p.ipc == nil {
		return
	}
	delete(p.ipc, name)
	if len(p.ipc) == 0 {
		p.ipc = nil
	}
}

// IPCUnregisterAll removes every command on p.
func (m *Manager) IPCUnregisterAll(p *Plugin) {
	if p == nil {
		return
	}
	p.ipc = nil
}

// IPCCall invokes a command on p.
func (m *Manager) IPCCall(p *Plugin, name string, args ...any) (any, error) {
	cmd := p.command(name)
	if cmd == nil {
		m.observer.IPCCalled("not_found")
		return nil, fmt.Errorf("%w: %s on %s", ErrIPCNotFound, name, pluginID(p))
	}
	result, err := cmd.Marshal(cmd.Func, cmd.Params, cmd.Return, args)
	if err != nil {
		m.observer.IPCCalled("error")
		return nil, fmt.Errorf("ipc %s on %s: %w", name, p.ID(), err)
	}
	m.observer.IPCCalled("ok")
	return result, nil
}

// IPCParams returns the declared parameter and return types of a command.
func (m *Manager) IPCParams(p *Plugin, name string) ([]ValueType, ValueType, error) {
	cmd := p.command(name)
	if cmd == nil {
		return nil, ValueVoid, fmt.Errorf("%w: %s on %s", ErrIPCNotFound, name, pluginID(p))
	}
	params := make([]ValueType, len(cmd.Params))
	copy(params, cmd.Params)
	return params, cmd.Return, nil
}

// IPCCommands returns the names of p's commands.
func (m *Manager) IPCCommands(p *Plugin) []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.ipc))
	for name := range p.ipc {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func (p *Plugin) command(name string) *Command {
	if p == nil || p.ipc == nil {
		return nil
	}
	return p.ipc[name]
}

func pluginID(p *Plugin) string {
	if p == nil {
		return "<nil>"
	}
	return p.ID()
}
