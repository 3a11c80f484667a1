package plugins

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/conduit/pkg/dependencies"
	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/signals"
)

var tracer = otel.Tracer("github.com/platinummonkey/conduit/pkg/plugins")

// Manager owns every known module: the probe queue, the loaded set, the
// loaders, the protocol modules and the dependency graph between them.
//
// Manager is not safe for concurrent use. All calls come from the control
// goroutine.
type Manager struct {
	searchPaths []string
	hostUI      string

	plugins   []*Plugin
	queue     []*Plugin
	loaded    []*Plugin
	loadOrder []*Plugin
	loaders   []*Plugin
	protocols []*Plugin
	byKey     map[string]*Plugin
	graph     *dependencies.Graph

	opener   Opener
	registry *protocol.Registry
	bus      *signals.Bus
	dialogs  protocol.DialogCloser
	notifier Notifier
	observer Observer
	log      *logrus.Logger

	spanCtx  []context.Context
	shutdown bool
}

// NewManager creates a manager that registers protocol modules in registry
// and emits lifecycle signals on bus.
func NewManager(registry *protocol.Registry, bus *signals.Bus, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	if registry == nil {
		registry = protocol.NewRegistry(log)
	}
	if bus == nil {
		bus = signals.NewBus(log)
	}
	return &Manager{
		byKey:    make(map[string]*Plugin),
		graph:    dependencies.NewGraph(),
		opener:   NewOpener(),
		registry: registry,
		bus:      bus,
		notifier: LogNotifier{Log: log},
		observer: nopObserver{},
		log:      log,
	}
}

// SetOpener replaces the native module opener.
func (m *Manager) SetOpener(o Opener) { m.opener = o }

// SetNotifier sets where user-facing failures are reported.
func (m *Manager) SetNotifier(n Notifier) { m.notifier = n }

// SetDialogCloser sets the UI hook used to close a module's dialogs.
func (m *Manager) SetDialogCloser(dc protocol.DialogCloser) { m.dialogs = dc }

// SetObserver sets the metrics observer.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	m.observer = o
}

// SetHostUI sets the front-end tag modules' UI requirements are checked
// against.
func (m *Manager) SetHostUI(ui string) { m.hostUI = ui }

// HostUI returns the front-end tag.
func (m *Manager) HostUI() string { return m.hostUI }

// AddSearchPath appends a directory scanned by ProbeAll.
func (m *Manager) AddSearchPath(dir string) {
	for _, d := range m.searchPaths {
		if d == dir {
			return
		}
	}
	m.searchPaths = append(m.searchPaths, dir)
}

// SearchPaths returns the directories scanned by ProbeAll.
func (m *Manager) SearchPaths() []string {
	return append([]string(nil), m.searchPaths...)
}

// Registry returns the protocol registry.
func (m *Manager) Registry() *protocol.Registry { return m.registry }

// Bus returns the signal bus.
func (m *Manager) Bus() *signals.Bus { return m.bus }

// Graph returns the live dependency graph. Node ids are descriptor keys;
// use Lookup to map them back.
func (m *Manager) Graph() *dependencies.Graph { return m.graph }

// Lookup maps a dependency graph node back to its descriptor.
func (m *Manager) Lookup(key string) (*Plugin, bool) {
	p, ok := m.byKey[key]
	return p, ok
}

// All returns every known descriptor in discovery order.
func (m *Manager) All() []*Plugin { return append([]*Plugin(nil), m.plugins...) }

// Loaded returns loaded descriptors sorted by name.
func (m *Manager) Loaded() []*Plugin { return append([]*Plugin(nil), m.loaded...) }

// Protocols returns loaded protocol modules sorted by name.
func (m *Manager) Protocols() []*Plugin { return append([]*Plugin(nil), m.protocols...) }

// Loaders returns loaded loader modules in load order.
func (m *Manager) Loaders() []*Plugin { return append([]*Plugin(nil), m.loaders...) }

// Queued returns descriptors waiting in the probe queue.
func (m *Manager) Queued() []*Plugin { return append([]*Plugin(nil), m.queue...) }

// Dependents returns the loaded modules that depend on p.
func (m *Manager) Dependents(p *Plugin) []*Plugin {
	return m.resolve(m.graph.Dependents(p.key()))
}

// Find returns the module with the given id.
func (m *Manager) Find(id string) *Plugin {
	for _, p := range m.plugins {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// FindWithName returns the module with the given display name.
func (m *Manager) FindWithName(name string) *Plugin {
	for _, p := range m.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// FindWithFilename returns the module probed from path.
func (m *Manager) FindWithFilename(path string) *Plugin {
	if path == "" {
		return nil
	}
	for _, p := range m.plugins {
		if p.path == path {
			return p
		}
	}
	return nil
}

// FindWithBasename returns the module whose file identity is base.
func (m *Manager) FindWithBasename(base string) *Plugin {
	if base == "" {
		return nil
	}
	for _, p := range m.plugins {
		if p.path != "" && Basename(p.path) == base {
			return p
		}
	}
	return nil
}

// FindByExtensions returns every module whose file has one of exts.
func (m *Manager) FindByExtensions(exts ...string) []*Plugin {
	var out []*Plugin
	for _, p := range m.plugins {
		if p.path == "" {
			continue
		}
		for _, ext := range exts {
			if hasExtension(p.path, ext) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// loaderFor returns the loaded loader with the highest priority claiming
// ext.
func (m *Manager) loaderFor(ext string) *Plugin {
	var best *Plugin
	for _, l := range m.loaders {
		if !l.loaded || !l.LoaderInfo().Claims(ext) {
			continue
		}
		if best == nil || l.info.Priority > best.info.Priority {
			best = l
		}
	}
	return best
}

func (m *Manager) resolve(keys []string) []*Plugin {
	out := make([]*Plugin, 0, len(keys))
	for _, k := range keys {
		if p, ok := m.byKey[k]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) track(p *Plugin) {
	m.plugins = append(m.plugins, p)
	m.queue = append(m.queue, p)
	m.byKey[p.key()] = p
	m.reportCounts()
}

func (m *Manager) untrack(p *Plugin) {
	m.plugins = removePlugin(m.plugins, p)
	m.queue = removePlugin(m.queue, p)
	m.loaders = removePlugin(m.loaders, p)
	if m.byKey[p.key()] == p {
		delete(m.byKey, p.key())
	}
	m.reportCounts()
}

func (m *Manager) reportCounts() {
	unloadable := 0
	for _, p := range m.plugins {
		if p.unloadable {
			unloadable++
		}
	}
	m.observer.PluginCounts(len(m.loaded), unloadable)
}

func (m *Manager) insertLoaded(p *Plugin) {
	m.loaded = insertSorted(m.loaded, p, byName)
	m.loadOrder = append(m.loadOrder, p)
}

func (m *Manager) insertProtocol(p *Plugin) {
	m.protocols = insertSorted(m.protocols, p, protocolFirst)
}

// byName orders descriptors by display name, case-insensitively.
func byName(a, b *Plugin) bool {
	an, bn := strings.ToLower(a.Name()), strings.ToLower(b.Name())
	if an != bn {
		return an < bn
	}
	return a.key() < b.key()
}

// protocolFirst orders protocol modules before any other, then by name.
func protocolFirst(a, b *Plugin) bool {
	ap, bp := a.Type() == TypeProtocol, b.Type() == TypeProtocol
	if ap != bp {
		return ap
	}
	return byName(a, b)
}

func insertSorted(list []*Plugin, p *Plugin, less func(a, b *Plugin) bool) []*Plugin {
	i := sort.Search(len(list), func(i int) bool { return less(p, list[i]) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = p
	return list
}

func removePlugin(list []*Plugin, p *Plugin) []*Plugin {
	for i, q := range list {
		if q == p {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// startSpan opens a span nested under the operation currently running.
// Loads and unloads recurse, so the context stack mirrors the call stack.
func (m *Manager) startSpan(name string, p *Plugin, path string) func(error) {
	parent := context.Background()
	if n := len(m.spanCtx); n > 0 {
		parent = m.spanCtx[n-1]
	}
	attrs := []attribute.KeyValue{}
	if p != nil {
		attrs = append(attrs, attribute.String("plugin.id", p.ID()), attribute.String("plugin.type", p.Type().String()))
		path = p.path
	}
	if path != "" {
		attrs = append(attrs, attribute.String("plugin.path", path))
	}
	ctx, span := tracer.Start(parent, name, trace.WithAttributes(attrs...))
	m.spanCtx = append(m.spanCtx, ctx)

	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		m.spanCtx = m.spanCtx[:len(m.spanCtx)-1]
	}
}
