package plugins

import (
	"fmt"
	"os"
	"path/filepath"
)

// Probe inspects the module at path without activating it. A successfully
// probed module is known to the manager and queued for loading. A module
// found unusable is still returned, marked unloadable, so the reason stays
// visible.
//
// A module is identified by its basename. Probing a path that is already
// known returns the existing descriptor. Probing a different file with a
// known identity also returns the existing descriptor, unless that one is
// unloadable, in which case it is destroyed and the new file is probed.
func (m *Manager) Probe(path string) (p *Plugin, err error) {
	end := m.startSpan("plugins.Probe", nil, path)
	defer func() {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case p != nil && p.unloadable:
			result = "unloadable"
		}
		m.observer.PluginProbed(result)
		end(err)
	}()

	if fi, statErr := os.Stat(path); statErr != nil || fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	log := m.log.WithField("path", path)

	if existing := m.FindWithBasename(Basename(path)); existing != nil {
		if existing.path == path {
			return existing, nil
		}
		if !existing.unloadable {
			log.Infof("Not probing %s: %s is already known from %s", path, existing.ID(), existing.path)
			return existing, nil
		}
		log.Infof("Replacing unloadable %s from %s", existing.ID(), existing.path)
		if derr := m.Destroy(existing); derr != nil {
			log.WithError(derr).Warn("Failed to destroy unloadable plugin")
			return existing, nil
		}
	}

	if IsNativePath(path) {
		p, err = m.probeNative(path)
	} else {
		p, err = m.probeDelegated(path)
	}
	if err != nil {
		log.WithError(err).Debug("Probe failed")
		return nil, err
	}

	m.track(p)
	log.WithField("plugin", p.ID()).Debugf("Probed %s", p.info)
	return p, nil
}

// RegisterStatic probes a module compiled into the host. It has no path
// and no handle and is queued like any probed module.
func (m *Manager) RegisterStatic(init EntryFunc) (p *Plugin, err error) {
	end := m.startSpan("plugins.RegisterStatic", nil, "")
	defer func() { end(err) }()

	p = newPlugin("", true)
	p.static = true
	p.entry = init

	if init == nil || !init(p) {
		return nil, fmt.Errorf("%w: static plugin", ErrEntryFailed)
	}
	if err := m.describe(p); err != nil {
		return nil, err
	}
	if existing := m.Find(p.ID()); existing != nil && existing.static {
		return existing, nil
	}

	m.track(p)
	m.log.WithField("plugin", p.ID()).Debug("Registered static plugin")
	return p, nil
}

func (m *Manager) probeNative(path string) (*Plugin, error) {
	p := newPlugin(path, true)

	h, lazy, firstErr, err := openNative(m.opener, path)
	if err != nil {
		return nil, err
	}
	p.handle = h
	p.lazy = lazy
	if lazy {
		p.markUnloadable(firstErr.Error())
	}

	sym, err := h.Lookup(EntrySymbol)
	if err != nil {
		m.closeHandle(p)
		return nil, fmt.Errorf("%w: %s: %v", ErrNoEntry, path, err)
	}

	entry, ok := asEntry(sym)
	if !ok {
		if lazy {
			// The symbol exists but nothing can be called through a lazy
			// handle. Keep a bare descriptor so the open error is visible.
			p.info = &Info{Name: Basename(path), Type: TypeUnknown}
			return p, nil
		}
		m.closeHandle(p)
		return nil, fmt.Errorf("%w: %s: %s has type %T", ErrNoEntry, path, EntrySymbol, sym)
	}

	if !entry(p) {
		m.closeHandle(p)
		return nil, fmt.Errorf("%w: %s", ErrEntryFailed, path)
	}
	p.entry = entry
	if err := m.describe(p); err != nil {
		m.closeHandle(p)
		return nil, err
	}
	return p, nil
}

func (m *Manager) probeDelegated(path string) (*Plugin, error) {
	ext := filepath.Ext(path)
	loader := m.loaderFor(ext)
	if loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, path)
	}

	p := newPlugin(path, false)
	p.loader = loader

	li := loader.LoaderInfo()
	if li.Probe == nil || !li.Probe(p) {
		return nil, fmt.Errorf("%w: %s rejected by loader %s", ErrEntryFailed, path, loader.ID())
	}
	if err := m.describe(p); err != nil {
		if li.Destroy != nil {
			li.Destroy(p)
		}
		return nil, err
	}
	return p, nil
}

// describe decodes the metadata handed to p.Describe and runs the
// compatibility and contract checks.
func (m *Manager) describe(p *Plugin) error {
	info, diag, err := decodeInfo(p.raw)
	p.raw = nil
	if err != nil {
		return fmt.Errorf("%s: %w", describePath(p), err)
	}
	p.info = info
	p.abiValid = abiValid(info)

	if diag != "" {
		p.markUnloadable(diag)
		return nil
	}
	if reason := compatibility(info, m.hostUI); reason != "" {
		p.markUnloadable(reason)
		return nil
	}
	if p.unloadable {
		return nil
	}

	switch info.Type {
	case TypeProtocol:
		proto := p.Protocol()
		if proto == nil {
			return fmt.Errorf("%w: %s has no protocol object", ErrProtocolContract, describePath(p))
		}
		if err := proto.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProtocolContract, describePath(p), err)
		}
	case TypeLoader:
		if p.LoaderInfo() == nil {
			return fmt.Errorf("%w: %s", ErrLoaderContract, describePath(p))
		}
	}
	return nil
}

func (m *Manager) closeHandle(p *Plugin) {
	if p.handle == nil {
		return
	}
	if err := p.handle.Close(); err != nil {
		m.log.WithError(err).WithField("path", p.path).Debug("Failed to close plugin handle")
	}
	p.handle = nil
}

func describePath(p *Plugin) string {
	if p.path != "" {
		return p.path
	}
	return "static plugin"
}
