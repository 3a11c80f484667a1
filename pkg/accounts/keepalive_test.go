package accounts

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

type pingServer struct {
	protocol.UnimplementedServer
	interval int
	pings    map[string]int
}

func (s *pingServer) Keepalive(conn *protocol.Connection) { s.pings[conn.Account.Username]++ }

func (s *pingServer) KeepaliveInterval() int { return s.interval }

func keepaliveSetup(t *testing.T, interval int) (*Manager, *pingServer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	server := &pingServer{interval: interval, pings: map[string]int{}}
	p, err := protocol.New("ping", "Ping", &testBase{}, protocol.WithServer(server))
	require.NoError(t, err)
	reg := protocol.NewRegistry(log)
	require.NoError(t, reg.Register(p))
	return NewManager(reg, nil, log), server
}

func TestKeepalives_Tick(t *testing.T) {
	m, server := keepaliveSetup(t, 30)
	ctx := context.Background()

	alice, err := m.Add("alice", "ping")
	require.NoError(t, err)
	bob, err := m.Add("bob", "ping")
	require.NoError(t, err)
	bob.Settings["keepalive"] = 10
	carol, err := m.Add("carol", "ping")
	require.NoError(t, err)
	carol.Settings["keepalive"] = 0
	_, err = m.Add("dave", "ping")
	require.NoError(t, err)

	for _, acct := range []*protocol.Account{alice, bob, carol} {
		require.NoError(t, m.Connect(ctx, acct))
	}

	k := NewKeepalives(m, nil, nil)
	start := time.Unix(1000, 0)

	assert.Equal(t, 0, k.Tick(start))
	assert.Equal(t, 1, k.Tick(start.Add(10*time.Second)))
	assert.Equal(t, 0, k.Tick(start.Add(15*time.Second)))
	assert.Equal(t, 2, k.Tick(start.Add(30*time.Second)))

	assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, server.pings)

	require.NoError(t, m.Disconnect(bob))
	k.Tick(start.Add(31 * time.Second))
	_, tracked := k.last[bob.ID]
	assert.False(t, tracked)
}

func TestKeepalives_Disabled(t *testing.T) {
	m, server := keepaliveSetup(t, 0)
	acct, err := m.Add("alice", "ping")
	require.NoError(t, err)
	require.NoError(t, m.Connect(context.Background(), acct))

	k := NewKeepalives(m, nil, nil)
	start := time.Unix(0, 0)
	k.Tick(start)
	assert.Equal(t, 0, k.Tick(start.Add(time.Hour)))
	assert.Empty(t, server.pings)
}

type chanPoster struct {
	mu     sync.Mutex
	posted chan func()
	err    error
}

func (p *chanPoster) Post(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	select {
	case p.posted <- fn:
	default:
	}
	return nil
}

func TestKeepalives_Schedule(t *testing.T) {
	m, _ := keepaliveSetup(t, 30)
	poster := &chanPoster{posted: make(chan func(), 4)}
	k := NewKeepalives(m, poster, nil)

	assert.Error(t, k.Start("not a schedule"))

	require.NoError(t, k.Start("@every 1s"))
	defer k.Stop()

	select {
	case fn := <-poster.posted:
		fn()
	case <-time.After(3 * time.Second):
		t.Fatal("keepalive tick was never posted")
	}

	poster.mu.Lock()
	poster.err = errors.New("closed")
	poster.mu.Unlock()
}
