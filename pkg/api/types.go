package api

import (
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

// PluginView is the JSON form of a module descriptor.
type PluginView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Type         string   `json:"type"`
	Path         string   `json:"path,omitempty"`
	Native       bool     `json:"native"`
	Static       bool     `json:"static"`
	Loaded       bool     `json:"loaded"`
	Unloadable   bool     `json:"unloadable"`
	Error        string   `json:"error,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`
	Loader       string   `json:"loader,omitempty"`
	Protocol     string   `json:"protocol,omitempty"`
}

// ProtocolView is the JSON form of a registered protocol.
type ProtocolView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Options      []string `json:"account_options,omitempty"`
	Accounts     int      `json:"active_accounts"`
}

// AccountView is the JSON form of an account. The password is never
// included.
type AccountView struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ProtocolID string `json:"protocol_id"`
	Alias      string `json:"alias,omitempty"`
	Connected  bool   `json:"connected"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"status_message,omitempty"`
}

// ActionView is one entry of a module's action menu.
type ActionView struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// CommandView describes a registered IPC command.
type CommandView struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Return string   `json:"return"`
}

// ProbeRequest asks the manager to probe one file.
type ProbeRequest struct {
	Path string `json:"path"`
}

// IPCRequest carries the arguments of an IPC call.
type IPCRequest struct {
	Args []any `json:"args"`
}

// IPCResponse carries an IPC call's result.
type IPCResponse struct {
	Result any `json:"result"`
}

// CreateAccountRequest creates an account.
type CreateAccountRequest struct {
	Username   string         `json:"username"`
	ProtocolID string         `json:"protocol_id"`
	Password   string         `json:"password,omitempty"`
	Alias      string         `json:"alias,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// StatusRequest sets an account's status.
type StatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SavedView is the saved "load on startup" list.
type SavedView struct {
	Plugins []string `json:"plugins"`
	Current []string `json:"current,omitempty"`
}

func (s *Server) pluginView(p *plugins.Plugin) PluginView {
	v := PluginView{
		ID:         p.ID(),
		Name:       p.Name(),
		Type:       p.Type().String(),
		Path:       p.Path(),
		Native:     p.IsNative(),
		Static:     p.IsStatic(),
		Loaded:     p.IsLoaded(),
		Unloadable: p.IsUnloadable(),
		Error:      p.Error(),
	}
	if info := p.Info(); info != nil {
		v.Version = info.Version
		v.Summary = info.Summary
		v.Dependencies = append([]string(nil), info.Dependencies...)
	}
	for _, d := range s.manager.Dependents(p) {
		v.Dependents = append(v.Dependents, d.ID())
	}
	if l := p.Loader(); l != nil {
		v.Loader = l.ID()
	}
	if proto := p.Protocol(); proto != nil {
		v.Protocol = proto.ID()
	}
	return v
}

func (s *Server) protocolView(p *protocol.Protocol) ProtocolView {
	v := ProtocolView{ID: p.ID(), Name: p.Name(), Capabilities: []string{}}
	for _, c := range p.Capabilities() {
		v.Capabilities = append(v.Capabilities, c.String())
	}
	for _, opt := range p.AccountOptions() {
		v.Options = append(v.Options, opt.PrefName)
	}
	if s.accounts != nil {
		v.Accounts = len(s.accounts.ActiveFor(p.ID()))
	}
	return v
}

func accountView(a *protocol.Account) AccountView {
	return AccountView{
		ID:         a.ID,
		Username:   a.Username,
		ProtocolID: a.ProtocolID,
		Alias:      a.Alias,
		Connected:  a.Connection() != nil,
		Status:     a.Status.ID,
		Message:    a.Status.Message,
	}
}
