package plugins

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/conduit/pkg/dependencies"
	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/signals"
)

// Load activates p after its dependencies. Loading an already loaded module
// succeeds without doing anything.
//
// Dependencies are resolved in three passes: every declared dependency must
// be known, then every dependency that is not loaded is loaded, and only
// then does p record itself as a dependent of each. A failure in the first
// two passes leaves no reverse edges behind.
func (m *Manager) Load(p *Plugin) (err error) {
	if p == nil {
		return fmt.Errorf("%w: nil plugin", ErrNotFound)
	}
	if p.loaded {
		return nil
	}
	if p.destroyed {
		return fmt.Errorf("%w: %s", ErrDestroyed, p.ID())
	}
	if p.unloadable {
		return fmt.Errorf("%w: %s: %s", ErrUnloadable, p.ID(), p.err)
	}

	end := m.startSpan("plugins.Load", p, "")
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.observer.PluginLoaded(p.Type().String(), result)
		end(err)
	}()

	log := m.log.WithField("plugin", p.ID())

	if p.Type() == TypeProtocol {
		proto := p.Protocol()
		if proto == nil || proto.Released() {
			if rerr := m.revive(p); rerr != nil {
				return rerr
			}
			proto = p.Protocol()
		}
		if existing, ok := m.registry.Lookup(proto.ID()); ok && existing != proto {
			return fmt.Errorf("%w: %s", ErrDuplicateProtocol, proto.ID())
		}
	}

	// pass 1: every dependency is known and the closure is acyclic
	deps := make([]*Plugin, 0, len(p.info.Dependencies))
	for _, id := range p.info.Dependencies {
		dep := m.Find(id)
		if dep == nil {
			m.notifier.Notify("Unable to load the plugin",
				fmt.Sprintf("The required plugin %s was not found. Please install this plugin and try again.", id))
			return fmt.Errorf("%w: %s requires %s", ErrDependencyNotFound, p.ID(), id)
		}
		deps = append(deps, dep)
	}
	if _, cerr := dependencies.TopologicalSort(p.ID(), m.declaredDependencies); cerr != nil {
		return fmt.Errorf("%w: %s: %v", ErrDependencyCycle, p.ID(), cerr)
	}

	// pass 2: load what is missing
	for _, dep := range deps {
		if dep.loaded {
			continue
		}
		if derr := m.Load(dep); derr != nil {
			m.notifier.Notify("Unable to load the plugin",
				fmt.Sprintf("The required plugin %s was unable to load.", dep.Name()))
			return fmt.Errorf("%w: %s requires %s: %v", ErrDependencyFailed, p.ID(), dep.ID(), derr)
		}
	}

	// pass 3: record reverse edges
	added := make([]*Plugin, 0, len(deps))
	rollback := func() {
		for _, dep := range added {
			m.graph.RemoveEdge(p.key(), dep.key())
		}
	}
	for _, dep := range deps {
		if m.graph.HasEdge(p.key(), dep.key()) {
			continue
		}
		if gerr := m.graph.AddEdge(p.key(), dep.key()); gerr != nil {
			rollback()
			return fmt.Errorf("%w: %s: %v", ErrDependencyCycle, p.ID(), gerr)
		}
		added = append(added, dep)
	}

	if !m.runLoadHook(p) {
		rollback()
		if p.err == "" {
			return fmt.Errorf("%w: %s", ErrLoadHookFailed, p.ID())
		}
		return fmt.Errorf("%w: %s: %s", ErrLoadHookFailed, p.ID(), p.err)
	}

	if proto := p.Protocol(); proto != nil {
		if rerr := m.registry.Register(proto); rerr != nil {
			m.runUnloadHook(p)
			rollback()
			return fmt.Errorf("register protocol %s: %w", proto.ID(), rerr)
		}
		m.insertProtocol(p)
	}

	p.loaded = true
	p.err = ""
	m.insertLoaded(p)
	m.reportCounts()
	log.Infof("Loaded %s", p.Name())
	m.bus.Emit(signals.PluginLoad, p)
	return nil
}

// revive runs p's entry point again to replace a protocol object released
// by an earlier unload. The module must describe the same id.
func (m *Manager) revive(p *Plugin) error {
	if p.entry == nil {
		return fmt.Errorf("%w: %s", ErrProtocolReleased, p.ID())
	}
	if !p.entry(p) {
		p.raw = nil
		return fmt.Errorf("%w: %s", ErrEntryFailed, describePath(p))
	}
	info, _, err := decodeInfo(p.raw)
	p.raw = nil
	if err != nil {
		return fmt.Errorf("%s: %w", describePath(p), err)
	}
	if info.ID != p.info.ID || info.Type != TypeProtocol {
		return fmt.Errorf("%w: %s described itself as %s %q", ErrProtocolContract, p.ID(), info.Type, info.ID)
	}
	proto, _ := info.ExtraInfo.(*protocol.Protocol)
	if proto == nil || proto.Released() {
		return fmt.Errorf("%w: %s", ErrProtocolReleased, p.ID())
	}
	if err := proto.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocolContract, describePath(p), err)
	}
	p.info = info
	m.log.WithField("plugin", p.ID()).Debug("Rebuilt protocol object")
	return nil
}

func (m *Manager) declaredDependencies(id string) []string {
	p := m.Find(id)
	if p == nil || p.info == nil {
		return nil
	}
	return p.info.Dependencies
}

// Unload deactivates p and, first, every module that depends on it.
//
// p leaves the loaded and protocol collections before anything else, so it
// is never indexed as loaded after an unload has begun, even if its unload
// hook then fails. A dependent that fails to unload is reported through the
// notifier and does not stop p's own unload.
func (m *Manager) Unload(p *Plugin) (err error) {
	if p == nil {
		return fmt.Errorf("%w: nil plugin", ErrNotLoaded)
	}
	m.loaded = removePlugin(m.loaded, p)
	m.protocols = removePlugin(m.protocols, p)
	m.loadOrder = removePlugin(m.loadOrder, p)

	if !p.loaded {
		return fmt.Errorf("%w: %s", ErrNotLoaded, p.ID())
	}

	end := m.startSpan("plugins.Unload", p, "")
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.observer.PluginUnloaded(result)
		m.reportCounts()
		end(err)
	}()

	log := m.log.WithField("plugin", p.ID())
	log.Infof("Unloading %s", p.Name())

	if m.dialogs != nil {
		m.dialogs.CloseDialogs(p)
	}

	for _, dep := range m.Dependents(p) {
		if !dep.loaded {
			continue
		}
		if derr := m.Unload(dep); derr != nil {
			log.WithError(derr).Warnf("Dependent %s failed to unload", dep.ID())
			m.notifier.Notify("Unable to unload the plugin",
				fmt.Sprintf("%s requires %s, but it failed to unload.", dep.Name(), p.Name()))
		}
	}

	for _, depKey := range m.graph.Dependencies(p.key()) {
		m.graph.RemoveEdge(p.key(), depKey)
	}

	if !m.runUnloadHook(p) {
		return fmt.Errorf("%w: %s", ErrUnloadHookFailed, p.ID())
	}

	if proto := p.Protocol(); proto != nil {
		if rerr := m.registry.Remove(proto); rerr != nil {
			log.WithError(rerr).Debug("Protocol was not registered")
		}
	}

	m.IPCUnregisterAll(p)
	m.bus.DisconnectByOwner(p)
	p.loaded = false

	m.bus.Emit(signals.PluginUnload, p)
	return nil
}

// Destroy forgets p, unloading it first if needed. A module whose metadata
// failed the magic or major version checks only has its handle closed;
// nothing it described is trusted.
func (m *Manager) Destroy(p *Plugin) error {
	if p == nil || p.destroyed {
		return nil
	}
	if p.loaded {
		if err := m.Unload(p); err != nil && p.loaded {
			return fmt.Errorf("destroy %s: %w", p.ID(), err)
		}
	}

	m.untrack(p)
	m.graph.RemoveNode(p.key())
	p.destroyed = true
	m.log.WithField("plugin", p.ID()).Debug("Destroying plugin")

	if !p.abiValid {
		m.closeHandle(p)
		return nil
	}

	if !p.native {
		if li := p.loader.LoaderInfo(); li != nil && li.Destroy != nil {
			li.Destroy(p)
		}
		return nil
	}

	switch p.Type() {
	case TypeLoader:
		li := p.LoaderInfo()
		// every module with a claimed extension goes, whichever loader
		// probed it
		for _, claimed := range m.FindByExtensions(li.Exts...) {
			if claimed == p {
				continue
			}
			if err := m.Destroy(claimed); err != nil {
				m.log.WithError(err).WithField("plugin", claimed.ID()).Warn("Failed to destroy module of removed loader")
			}
		}
	case TypeProtocol:
		if proto := p.Protocol(); proto != nil {
			proto.Release()
		}
	}

	if p.info.Destroy != nil {
		p.info.Destroy(p)
	}
	m.closeHandle(p)
	return nil
}

// Reload unloads and loads p again. A file-backed protocol module is
// probed afresh, so the returned descriptor replaces p; any other protocol
// module gets a new protocol object from its entry point on load.
func (m *Manager) Reload(p *Plugin) (*Plugin, error) {
	if p.loaded {
		if err := m.Unload(p); err != nil {
			return p, err
		}
	}
	if p.Type() == TypeProtocol && p.path != "" {
		path := p.path
		if err := m.Destroy(p); err != nil {
			return p, err
		}
		fresh, err := m.Probe(path)
		if err != nil {
			return nil, err
		}
		m.queue = removePlugin(m.queue, fresh)
		return fresh, m.Load(fresh)
	}
	return p, m.Load(p)
}

// UnloadAll unloads every loaded module, most recently loaded first.
func (m *Manager) UnloadAll() {
	for len(m.loadOrder) > 0 {
		p := m.loadOrder[len(m.loadOrder)-1]
		if err := m.Unload(p); err != nil && !errors.Is(err, ErrNotLoaded) {
			m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to unload plugin")
		}
	}
}

// Shutdown unloads and destroys every module. It is safe to call twice.
func (m *Manager) Shutdown() {
	if m.shutdown {
		return
	}
	m.shutdown = true
	m.UnloadAll()
	for len(m.plugins) > 0 {
		p := m.plugins[len(m.plugins)-1]
		if err := m.Destroy(p); err != nil {
			m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to destroy plugin")
			m.untrack(p)
		}
	}
	m.queue = nil
}

func (m *Manager) runLoadHook(p *Plugin) bool {
	if p.native {
		return p.info.Load == nil || p.info.Load(p)
	}
	li := p.loader.LoaderInfo()
	if li == nil || !p.loader.loaded {
		p.SetError("loader is not loaded")
		return false
	}
	return li.Load == nil || li.Load(p)
}

func (m *Manager) runUnloadHook(p *Plugin) bool {
	if p.native {
		return p.info.Unload == nil || p.info.Unload(p)
	}
	li := p.loader.LoaderInfo()
	return li == nil || li.Unload == nil || li.Unload(p)
}
