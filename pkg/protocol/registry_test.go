package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	accounts     []*Account
	disconnected []*Account
	proto        func() *Protocol
	// releasedAtDisconnect records whether the protocol was already released
	// when each disconnect happened.
	releasedAtDisconnect []bool
}

func (f *fakeAccounts) ActiveFor(id string) []*Account {
	var out []*Account
	for _, a := range f.accounts {
		if a.ProtocolID == id && a.Connection() != nil {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAccounts) ForceDisconnect(acct *Account) {
	p := f.proto()
	f.releasedAtDisconnect = append(f.releasedAtDisconnect, p.Released())
	Close(p, acct.Connection())
	acct.SetConnection(nil)
	f.disconnected = append(f.disconnected, acct)
}

type fakeDialogs struct{ closed []any }

func (f *fakeDialogs) CloseDialogs(owner any) { f.closed = append(f.closed, owner) }

type fakeSignals struct{ owners []any }

func (f *fakeSignals) DisconnectByOwner(owner any) int {
	f.owners = append(f.owners, owner)
	return 1
}

type countingObserver struct {
	registered, removed, forced int
	defaults                    map[Capability]int
}

func (o *countingObserver) ProtocolRegistered(string)      { o.registered++ }
func (o *countingObserver) ProtocolRemoved(string)         { o.removed++ }
func (o *countingObserver) AccountForcedDisconnect(string) { o.forced++ }
func (o *countingObserver) DispatchDefault(_ string, c Capability) {
	if o.defaults == nil {
		o.defaults = map[Capability]int{}
	}
	o.defaults[c]++
}

func TestRegistry_RegisterRejectsDuplicate(t *testing.T) {
	reg := NewRegistry(quietLogger())
	first := mustNew(t, "xmpp", "XMPP", &stubBase{})
	second := mustNew(t, "xmpp", "Other XMPP", &stubBase{})

	require.NoError(t, reg.Register(first))
	err := reg.Register(second)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	got, ok := reg.Lookup("xmpp")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	reg := NewRegistry(quietLogger())
	assert.ErrorIs(t, reg.Register(nil), ErrInvalidProtocol)

	released := mustNew(t, "x", "X", &stubBase{})
	released.Release()
	assert.ErrorIs(t, reg.Register(released), ErrReleased)
}

func TestRegistry_RemoveDisconnectsAccountsBeforeRelease(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7} {
		base := &stubBase{}
		p := mustNew(t, "irc", "IRC", base)
		base.proto = p

		src := &fakeAccounts{proto: func() *Protocol { return p }}
		for i := 0; i < n; i++ {
			acct := &Account{Username: "u", ProtocolID: "irc"}
			acct.SetConnection(&Connection{State: Connected})
			src.accounts = append(src.accounts, acct)
		}
		// an account on another protocol and an offline one are untouched
		other := &Account{ProtocolID: "xmpp"}
		other.SetConnection(&Connection{State: Connected})
		src.accounts = append(src.accounts, other, &Account{ProtocolID: "irc"})

		dialogs := &fakeDialogs{}
		signals := &fakeSignals{}
		obs := &countingObserver{}

		reg := NewRegistry(quietLogger())
		reg.SetAccountSource(src)
		reg.SetDialogCloser(dialogs)
		reg.SetSignalDetacher(signals)
		reg.SetObserver(obs)
		require.NoError(t, reg.Register(p))

		require.NoError(t, reg.Remove(p))

		assert.Len(t, src.disconnected, n)
		assert.Len(t, base.closes, n, "Close dispatched once per account")
		assert.Zero(t, base.closedWhileReleased)
		for _, released := range src.releasedAtDisconnect {
			assert.False(t, released)
		}
		assert.Equal(t, n, obs.forced)
		assert.True(t, p.Released())
		assert.Equal(t, []any{p}, dialogs.closed)
		assert.Equal(t, []any{p}, signals.owners)
		assert.Equal(t, 1, obs.removed)

		_, ok := reg.Lookup("irc")
		assert.False(t, ok)
		assert.True(t, other.IsConnected())
	}
}

func TestRegistry_RemoveUnregistered(t *testing.T) {
	reg := NewRegistry(quietLogger())
	p := mustNew(t, "x", "X", &stubBase{})

	assert.ErrorIs(t, reg.Remove(p), ErrNotRegistered)
	assert.ErrorIs(t, reg.Remove(nil), ErrNotRegistered)

	// a different object with a registered id is not the registered one
	require.NoError(t, reg.Register(p))
	impostor := mustNew(t, "x", "X", &stubBase{})
	assert.ErrorIs(t, reg.Remove(impostor), ErrNotRegistered)
	assert.False(t, p.Released())
}

func TestRegistry_AllSortedByName(t *testing.T) {
	reg := NewRegistry(quietLogger())
	for _, pair := range [][2]string{{"z", "Zephyr"}, {"a", "XMPP"}, {"m", "IRC"}} {
		require.NoError(t, reg.Register(mustNew(t, pair[0], pair[1], &stubBase{})))
	}

	var names []string
	for _, p := range reg.All() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"IRC", "XMPP", "Zephyr"}, names)
}

func TestRegistry_ObserverSeesDispatchDefaults(t *testing.T) {
	obs := &countingObserver{}
	reg := NewRegistry(quietLogger())
	reg.SetObserver(obs)
	p := mustNew(t, "x", "X", &stubBase{})
	require.NoError(t, reg.Register(p))

	SendIM(p, nil, "bob", "hi", 0)
	assert.Equal(t, 1, obs.registered)
	assert.Equal(t, 1, obs.defaults[CapIM])
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry(quietLogger())
	a := mustNew(t, "a", "A", &stubBase{})
	b := mustNew(t, "b", "B", &stubBase{})
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	reg.Shutdown()

	assert.Zero(t, reg.Len())
	assert.True(t, a.Released())
	assert.True(t, b.Released())
}
