package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/audit"
	"github.com/platinummonkey/conduit/pkg/config"
	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocols/loopback"
	"github.com/platinummonkey/conduit/pkg/storage"
)

const greetScript = `
plugin_info = { id = "lua-greet", name = "Greet", dependencies = { "core-loopback" } }

function plugin_load(plugin)
	conduit.register_command("greet", function(who) return "hi " .. who end, "string", "string")
	return true
end
`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "plugins")
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "greet.lua"), []byte(greetScript), 0o644))

	cfg := config.Default()
	cfg.Plugins.SearchPaths = []string{pluginDir}
	cfg.Plugins.Watch = false
	cfg.Server.Enabled = false
	cfg.Storage.FilePath = filepath.Join(dir, "state", "saved.yaml")
	return cfg, pluginDir
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     func(c *storage.Config)
		wantErr error
	}{
		{
			name: "file creates its directory",
			cfg:  func(c *storage.Config) { c.FilePath = filepath.Join(dir, "nested", "saved.yaml") },
		},
		{
			name: "sqlite",
			cfg: func(c *storage.Config) {
				c.Type = storage.TypeSQLite
				c.SQLitePath = filepath.Join(dir, "saved.db")
			},
		},
		{
			name:    "unknown type",
			cfg:     func(c *storage.Config) { c.Type = "floppy" },
			wantErr: storage.ErrInvalidConfig,
		},
		{
			name:    "redis without url",
			cfg:     func(c *storage.Config) { c.Type = storage.TypeRedis },
			wantErr: storage.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := storage.DefaultConfig()
			tt.cfg(&cfg)
			store, err := OpenStore(context.Background(), cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.NoError(t, store.HealthCheck(context.Background()))
		})
	}
}

func TestHost_OpenRestoresSavedList(t *testing.T) {
	cfg, pluginDir := testConfig(t)
	greetPath := filepath.Join(pluginDir, "greet.lua")

	store, err := OpenStore(context.Background(), cfg.Storage)
	require.NoError(t, err)
	require.NoError(t, store.SaveState(context.Background(), &storage.SavedState{Plugins: []string{greetPath}}))

	h, err := New(context.Background(), cfg, quietLogger(), Options{Store: store})
	require.NoError(t, err)
	require.NoError(t, h.Open(context.Background()))
	defer h.Close()

	var (
		registered bool
		greet      *plugins.Plugin
		out        any
	)
	err = h.Loop.Call(context.Background(), func() error {
		_, registered = h.Registry.Lookup(loopback.ProtocolID)
		greet = h.Plugins.Find("lua-greet")
		if greet == nil {
			return errors.New("lua-greet not probed")
		}
		var err error
		out, err = h.Plugins.IPCCall(greet, "greet", "ann")
		return err
	})
	require.NoError(t, err)
	assert.True(t, registered, "built-in protocol registered")
	assert.True(t, greet.IsLoaded())
	assert.Equal(t, "hi ann", out)
}

func TestHost_CloseUnloadsWithoutSaving(t *testing.T) {
	cfg, pluginDir := testConfig(t)
	greet := filepath.Join(pluginDir, "greet.lua")

	h, err := New(context.Background(), cfg, quietLogger(), Options{})
	require.NoError(t, err)
	require.NoError(t, h.Open(context.Background()))

	require.NoError(t, h.Store.SaveState(context.Background(), &storage.SavedState{Plugins: []string{greet}}))
	h.Close()
	h.Close()

	assert.Equal(t, 0, h.Registry.Len())
	assert.Empty(t, h.Plugins.Loaded())

	store, err := OpenStore(context.Background(), cfg.Storage)
	require.NoError(t, err)
	state, err := store.LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{greet}, state.Plugins)
}

func TestHost_AuditTrail(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.Dir = filepath.Join(t.TempDir(), "audit")

	h, err := New(context.Background(), cfg, quietLogger(), Options{})
	require.NoError(t, err)
	require.NotNil(t, h.Audit)
	require.NoError(t, h.Open(context.Background()))

	err = h.Loop.Call(context.Background(), func() error {
		greet := h.Plugins.Find("lua-greet")
		if greet == nil {
			return errors.New("lua-greet not probed")
		}
		return h.Plugins.Load(greet)
	})
	require.NoError(t, err)
	h.Close()

	trail, err := audit.NewFileLogger(audit.FileLoggerConfig{BasePath: cfg.Audit.Dir})
	require.NoError(t, err)
	defer trail.Close()

	events, err := trail.Read(audit.Filter{PluginID: "lua-greet"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventTypePluginLoad, events[0].Type)
	assert.Equal(t, audit.EventTypePluginUnload, events[1].Type, "shutdown unloads are recorded")

	loads, err := trail.Read(audit.Filter{Types: []audit.EventType{audit.EventTypePluginLoad}})
	require.NoError(t, err)
	assert.Len(t, loads, 3, "built-in modules are recorded too")
}

func TestHost_WebhooksFlushOnClose(t *testing.T) {
	var (
		mu       sync.Mutex
		unloaded []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e audit.Event
		if json.NewDecoder(r.Body).Decode(&e) == nil {
			mu.Lock()
			unloaded = append(unloaded, e.PluginID)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg, _ := testConfig(t)
	cfg.Webhooks = []config.WebhookConfig{{URL: srv.URL, Events: []string{"plugin.unload"}}}

	h, err := New(context.Background(), cfg, quietLogger(), Options{})
	require.NoError(t, err)
	require.NoError(t, h.Open(context.Background()))
	h.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"core-lua", "core-loopback"}, unloaded)
}

func TestHost_RunServesUntilCancelled(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Server.Enabled = true
	cfg.Server.Port = "0"
	cfg.Server.RateLimit = 100
	cfg.Plugins.Watch = true

	h, err := New(context.Background(), cfg, quietLogger(), Options{Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		var n int
		err := h.Loop.Call(ctx, func() error {
			n = h.Registry.Len()
			return nil
		})
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, h.Registry.Len())
}

type memStore struct {
	mu     sync.Mutex
	saves  [][]string
	failed bool
	panics bool
}

func (s *memStore) SaveState(_ context.Context, state *storage.SavedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return errors.New("disk full")
	}
	if s.panics {
		panic("backend exploded")
	}
	s.saves = append(s.saves, state.Plugins)
	return nil
}

func (s *memStore) last() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1]
}

func TestSaver_TracksLoadsAndUnloads(t *testing.T) {
	cfg, pluginDir := testConfig(t)
	greet := filepath.Join(pluginDir, "greet.lua")
	log := quietLogger()

	h, err := New(context.Background(), cfg, log, Options{})
	require.NoError(t, err)
	require.NoError(t, h.Open(context.Background()))
	defer h.Close()

	mem := &memStore{}
	s := newSaver(h.Plugins, mem, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()

	var p *plugins.Plugin
	require.NoError(t, h.Loop.Call(ctx, func() error {
		s.attach()
		p = h.Plugins.Find("lua-greet")
		return h.Plugins.Load(p)
	}))
	require.Eventually(t, func() bool { return assert.ObjectsAreEqual([]string{greet}, mem.last()) },
		time.Second, 5*time.Millisecond)

	require.NoError(t, h.Loop.Call(ctx, func() error { return h.Plugins.Unload(p) }))
	require.Eventually(t, func() bool { return assert.ObjectsAreEqual([]string{}, mem.last()) },
		time.Second, 5*time.Millisecond)

	require.NoError(t, h.Loop.Call(ctx, func() error {
		s.detach()
		return h.Plugins.Load(p)
	}))
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{}, mem.last(), "detached saver ignores loads")
}

func TestSaver_KeepsLatestSnapshot(t *testing.T) {
	log := quietLogger()
	m := plugins.NewManager(nil, nil, log)
	mem := &memStore{}
	s := newSaver(m, mem, log)

	s.snapshot()
	s.snapshot()
	assert.Len(t, s.pending, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.run(ctx))
	assert.Equal(t, []string{}, mem.last(), "pending snapshot flushed on exit")

	mem.failed = true
	s.snapshot()
	require.NoError(t, s.run(ctx))
	assert.Len(t, mem.saves, 1)
}

func TestSaver_PanicBecomesError(t *testing.T) {
	log := quietLogger()
	s := newSaver(plugins.NewManager(nil, nil, log), &memStore{panics: true}, log)
	s.snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.run(ctx)
	assert.ErrorContains(t, err, "backend exploded")
}
