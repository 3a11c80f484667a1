package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseDefaults calls every dispatch function whose table p lacks and
// checks the documented default.
func exerciseDefaults(t *testing.T, p *Protocol) {
	t.Helper()
	conn := &Connection{}
	acct := &Account{Username: "alice"}
	buddy := &Buddy{Name: "bob"}

	// client
	assert.Equal(t, "", ListEmblem(p, buddy))
	assert.Equal(t, "", StatusText(p, buddy))
	assert.Nil(t, TooltipText(p, buddy, true))
	assert.Nil(t, Actions(p, conn))
	assert.Equal(t, "Bob", Normalize(p, acct, "Bob"))
	assert.False(t, OfflineMessage(p, buddy))
	assert.Nil(t, AccountTextTable(p, acct))
	assert.Equal(t, 0, MaxMessageSize(p, conn))

	// server
	assert.ErrorIs(t, RegisterUser(p, acct), ErrNotSupported)
	assert.ErrorIs(t, UnregisterUser(p, acct), ErrNotSupported)
	assert.NotPanics(t, func() {
		SetInfo(p, conn, "info")
		GetInfo(p, conn, "bob")
		SetStatus(p, acct, Status{ID: "away"})
		SetIdle(p, conn, 10)
		ChangePassword(p, conn, "a", "b")
		AddBuddy(p, conn, buddy, "hi")
		RemoveBuddy(p, conn, buddy)
		AliasBuddy(p, conn, "bob", "Bobby")
		GroupBuddy(p, conn, "bob", "a", "b")
		RenameGroup(p, conn, "a", "b")
		SetBuddyIcon(p, conn, []byte{1})
		Keepalive(p, conn)
	})
	assert.Equal(t, 0, KeepaliveInterval(p))
	assert.Equal(t, -1, SendRaw(p, conn, []byte("x")))

	// im
	assert.Equal(t, -1, SendIM(p, conn, "bob", "hi", MessageSend))
	assert.Equal(t, 0, SendTyping(p, conn, "bob", Typing))

	// chat
	assert.Nil(t, ChatInfo(p, conn))
	assert.Nil(t, ChatInfoDefaults(p, conn, "room"))
	assert.Equal(t, "", ChatName(p, map[string]string{"room": "r"}))
	assert.Equal(t, -1, ChatSend(p, conn, 1, "hi", MessageSend))
	assert.Equal(t, "", ChatUserRealName(p, conn, 1, "bob"))
	assert.NotPanics(t, func() {
		JoinChat(p, conn, nil)
		RejectChat(p, conn, nil)
		ChatInvite(p, conn, 1, "join", "bob")
		ChatLeave(p, conn, 1)
		ChatSetTopic(p, conn, 1, "topic")
		ChatWhisper(p, conn, 1, "bob", "psst")
	})

	// privacy
	assert.NotPanics(t, func() {
		AddPermit(p, conn, "bob")
		AddDeny(p, conn, "bob")
		RemovePermit(p, conn, "bob")
		RemoveDeny(p, conn, "bob")
		SetPermitDeny(p, conn)
	})

	// xfer
	assert.False(t, CanReceiveFile(p, conn, "bob"))
	assert.Nil(t, NewXferFor(p, conn, "bob"))
	assert.NotPanics(t, func() { SendFile(p, conn, "bob", "/tmp/f") })

	// roomlist
	assert.Nil(t, GetRoomlist(p, conn))
	assert.Equal(t, "", SerializeRoom(p, &Room{Name: "r"}))
	assert.NotPanics(t, func() {
		CancelRoomlist(p, &Roomlist{})
		ExpandRoomCategory(p, &Roomlist{}, &Room{})
	})

	// attention
	assert.False(t, SendAttention(p, conn, "bob", 0))
	assert.Nil(t, AttentionTypes(p, acct))

	// media
	assert.False(t, InitiateMedia(p, acct, "bob", MediaCapsAudio))
	assert.Equal(t, MediaCapsNone, MediaCapsFor(p, acct, "bob"))

	// factory falls back to plain objects
	c := NewConnection(p, acct)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.ID)
	assert.Same(t, acct, c.Account)
	rl := NewRoomlist(p, acct)
	require.NotNil(t, rl)
	assert.Same(t, acct, rl.Account)
	wb := NewWhiteboard(p, acct, "bob", 3)
	require.NotNil(t, wb)
	assert.Equal(t, 3, wb.Session)
	x := NewXfer(p, acct, XferSend, "bob")
	require.NotNil(t, x)
	assert.Equal(t, XferSend, x.Type)
}

func TestDispatch_BaseOnlyProtocolReturnsDefaults(t *testing.T) {
	p := mustNew(t, "bare", "Bare", &stubBase{})
	exerciseDefaults(t, p)
}

func TestDispatch_NilProtocolReturnsDefaults(t *testing.T) {
	exerciseDefaults(t, nil)

	assert.Equal(t, "", ListIcon(nil, nil, nil))
	assert.Nil(t, StatusTypes(nil, nil))
	assert.ErrorIs(t, Login(nil, &Connection{}), ErrNotSupported)
	assert.NotPanics(t, func() { Close(nil, &Connection{}) })
}

func TestDispatch_UnimplementedEmbeddingReturnsDefaults(t *testing.T) {
	p := mustNew(t, "embedded", "Embedded", &stubBase{},
		WithClient(UnimplementedClient{}),
		WithServer(UnimplementedServer{}),
		WithIM(UnimplementedIM{}),
		WithChat(UnimplementedChat{}),
		WithPrivacy(UnimplementedPrivacy{}),
		WithXfer(UnimplementedXfer{}),
		WithRoomlist(UnimplementedRoomlist{}),
		WithAttention(UnimplementedAttention{}),
		WithMedia(UnimplementedMedia{}),
		WithFactory(UnimplementedFactory{}),
	)
	require.Len(t, p.Capabilities(), len(Capabilities()))
	exerciseDefaults(t, p)
}

func TestDispatch_PresentTableIsCalled(t *testing.T) {
	base := &stubBase{}
	im := &echoIM{}
	p := mustNew(t, "echo", "Echo", base, WithIM(im))
	conn := &Connection{}

	require.NoError(t, Login(p, conn))
	assert.Equal(t, Connected, conn.State)
	assert.Equal(t, "stub", ListIcon(p, nil, nil))
	assert.Len(t, StatusTypes(p, nil), 1)

	assert.Equal(t, 2, SendIM(p, conn, "bob", "hi", MessageSend))
	assert.Equal(t, []string{"bob:hi"}, im.sent)
	// SendTyping comes from the embedded default
	assert.Equal(t, 0, SendTyping(p, conn, "bob", Typing))

	Close(p, conn)
	assert.Equal(t, Disconnected, conn.State)
}

func TestDispatch_DefaultObserver(t *testing.T) {
	p := mustNew(t, "obs", "Obs", &stubBase{})
	seen := map[Capability]int{}
	p.SetDefaultObserver(func(id string, c Capability) {
		assert.Equal(t, "obs", id)
		seen[c]++
	})

	SendIM(p, nil, "bob", "hi", 0)
	ChatLeave(p, nil, 1)
	ChatLeave(p, nil, 2)
	ListIcon(p, nil, nil)

	assert.Equal(t, map[Capability]int{CapIM: 1, CapChat: 2}, seen)
}
