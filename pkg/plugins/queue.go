package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ProbeDir probes every regular file in dir, or only those with extension
// ext when ext is set. Probe failures are logged and skipped.
func (m *Manager) ProbeDir(dir, ext string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read plugin directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ext != "" && !hasExtension(entry.Name(), ext) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := m.Probe(path); err != nil {
			m.log.WithError(err).WithField("path", path).Debug("Skipping plugin")
		}
	}
	return nil
}

// ProbeAll probes every search path and then drains the load queue.
func (m *Manager) ProbeAll(ext string) {
	for _, dir := range m.searchPaths {
		if err := m.ProbeDir(dir, ext); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				m.log.Debugf("Plugin directory does not exist: %s", dir)
				continue
			}
			m.log.WithError(err).Warn("Failed to probe plugin directory")
		}
	}
	m.DrainQueue()
}

// DrainQueue processes probed modules. Loaders are loaded at once and their
// extensions probed; protocol modules are loaded at once, and a module whose
// protocol id is already taken is destroyed. Other modules stay known but
// unloaded. The queue may grow while it drains.
func (m *Manager) DrainQueue() {
	for len(m.queue) > 0 {
		p := m.queue[0]
		m.queue = m.queue[1:]
		if p.info == nil || p.destroyed {
			continue
		}

		switch p.Type() {
		case TypeLoader:
			if err := m.Load(p); err != nil {
				m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to load loader plugin")
				m.destroyQuietly(p)
				continue
			}
			m.loaders = append(m.loaders, p)
			for _, ext := range p.LoaderInfo().Exts {
				m.ProbeAll(ext)
			}

		case TypeProtocol:
			if err := m.Load(p); err != nil {
				if errors.Is(err, ErrDuplicateProtocol) {
					m.log.WithField("plugin", p.ID()).Infof("Dropping %s: %v", describePath(p), err)
				} else {
					m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to load protocol plugin")
				}
				m.destroyQuietly(p)
				continue
			}
		}
	}
}

func (m *Manager) destroyQuietly(p *Plugin) {
	if err := m.Destroy(p); err != nil {
		m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to destroy plugin")
	}
}

// ProbeAndQueue probes one file and drains the queue, so a new loader or
// protocol module becomes live at once.
func (m *Manager) ProbeAndQueue(path string) (*Plugin, error) {
	p, err := m.Probe(path)
	if err != nil {
		return nil, err
	}
	m.DrainQueue()
	if p.destroyed {
		return nil, fmt.Errorf("%w: %s was dropped after probing", ErrDestroyed, path)
	}
	return p, nil
}

// LoadSaved loads the modules named by paths, matching each by exact path
// first and by basename second. It returns the modules that ended up
// loaded.
func (m *Manager) LoadSaved(paths []string) []*Plugin {
	var loaded []*Plugin
	for _, path := range paths {
		p := m.FindWithFilename(path)
		if p == nil {
			p = m.FindWithBasename(Basename(path))
		}
		if p == nil {
			m.log.WithField("path", path).Info("Saved plugin not found")
			continue
		}
		if err := m.Load(p); err != nil {
			m.log.WithError(err).WithField("plugin", p.ID()).Warn("Failed to load saved plugin")
			continue
		}
		loaded = append(loaded, p)
	}
	return loaded
}

// SavedList returns the paths to persist as "load on startup". Loaders and
// protocol modules load themselves and static modules have no path, so
// they are left out.
func (m *Manager) SavedList() []string {
	var paths []string
	for _, p := range m.loaded {
		if p.path == "" || p.Type() == TypeLoader || p.Type() == TypeProtocol {
			continue
		}
		paths = append(paths, p.path)
	}
	return paths
}

// Actions returns p's actions. Only loaded modules with metadata from minor
// version 4 on have any.
func (m *Manager) Actions(p *Plugin) []Action {
	if p == nil || !p.loaded || p.info == nil || p.info.MinorVersion < 4 || p.info.Actions == nil {
		return nil
	}
	return p.info.Actions(p)
}
