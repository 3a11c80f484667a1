package plugins

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/protocol"
	"github.com/platinummonkey/conduit/pkg/signals"
)

// fakeOpener serves entry points from memory for files that exist on disk.
type fakeOpener struct {
	symbols  map[string]any
	openErr  map[string]error
	lazyErr  map[string]error
	closed   map[string]int
	lazyUsed map[string]bool
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		symbols:  map[string]any{},
		openErr:  map[string]error{},
		lazyErr:  map[string]error{},
		closed:   map[string]int{},
		lazyUsed: map[string]bool{},
	}
}

func (o *fakeOpener) Open(path string) (Handle, error) {
	if err := o.openErr[path]; err != nil {
		return nil, err
	}
	return &fakeHandle{opener: o, path: path}, nil
}

func (o *fakeOpener) OpenLazy(path string) (Handle, error) {
	if err := o.lazyErr[path]; err != nil {
		return nil, err
	}
	o.lazyUsed[path] = true
	return &fakeHandle{opener: o, path: path, lazy: true}, nil
}

type fakeHandle struct {
	opener *fakeOpener
	path   string
	lazy   bool
}

func (h *fakeHandle) Lookup(symbol string) (any, error) {
	sym, ok := h.opener.symbols[h.path]
	if !ok || symbol != EntrySymbol {
		return nil, errors.New("symbol not found")
	}
	if h.lazy {
		// lazily bound handles only expose addresses
		return uintptr(0xdead), nil
	}
	return sym, nil
}

func (h *fakeHandle) Close() error {
	h.opener.closed[h.path]++
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) {
	n.messages = append(n.messages, title+": "+message)
}

type harness struct {
	t        *testing.T
	dir      string
	opener   *fakeOpener
	manager  *Manager
	registry *protocol.Registry
	bus      *signals.Bus
	notifier *recordingNotifier
	events   []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	reg := protocol.NewRegistry(log)
	bus := signals.NewBus(log)
	m := NewManager(reg, bus, log)
	opener := newFakeOpener()
	m.SetOpener(opener)
	notifier := &recordingNotifier{}
	m.SetNotifier(notifier)
	m.SetHostUI("headless")

	dir := t.TempDir()
	m.AddSearchPath(dir)

	return &harness{t: t, dir: dir, opener: opener, manager: m, registry: reg, bus: bus, notifier: notifier}
}

// module writes an empty file named name into the harness dir (or subdir)
// and serves sym as its entry point.
func (h *harness) module(rel string, sym any) string {
	h.t.Helper()
	path := filepath.Join(h.dir, rel)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte("module"), 0o644))
	if sym != nil {
		h.opener.symbols[path] = sym
	}
	return path
}

// info returns current metadata for a standard module that records its
// hooks in h.events.
func (h *harness) info(id string, deps ...string) *Info {
	return &Info{
		Magic:        Magic,
		MajorVersion: HostMajorVersion,
		MinorVersion: HostMinorVersion,
		Type:         TypeStandard,
		Dependencies: deps,
		ID:           id,
		Name:         id,
		Version:      "1.0",
		Load: func(*Plugin) bool {
			h.events = append(h.events, "load:"+id)
			return true
		},
		Unload: func(*Plugin) bool {
			h.events = append(h.events, "unload:"+id)
			return true
		},
		Destroy: func(*Plugin) {
			h.events = append(h.events, "destroy:"+id)
		},
	}
}

func entryFor(info any) EntryFunc {
	return func(p *Plugin) bool {
		p.Describe(info)
		return true
	}
}

// probe writes a native module with the given metadata and probes it.
func (h *harness) probe(name string, info any) (*Plugin, error) {
	h.t.Helper()
	path := h.module(name+".so", entryFor(info))
	return h.manager.Probe(path)
}

func (h *harness) mustProbe(name string, info any) *Plugin {
	h.t.Helper()
	p, err := h.probe(name, info)
	require.NoError(h.t, err)
	return p
}

type testBase struct {
	closes int
}

func (b *testBase) ListIcon(*protocol.Account, *protocol.Buddy) string  { return "test" }
func (b *testBase) StatusTypes(*protocol.Account) []protocol.StatusType { return nil }
func (b *testBase) Login(conn *protocol.Connection) error {
	conn.State = protocol.Connected
	return nil
}
func (b *testBase) Close(*protocol.Connection) { b.closes++ }

func (h *harness) protocolInfo(pluginID, protoID string) (*Info, *protocol.Protocol) {
	h.t.Helper()
	proto, err := protocol.New(protoID, protoID, &testBase{}, protocol.WithIM(protocol.UnimplementedIM{}))
	require.NoError(h.t, err)
	info := h.info(pluginID)
	info.Type = TypeProtocol
	info.ExtraInfo = proto
	return info, proto
}
