// Package loopback is a protocol module that talks to itself. Every
// message sent to a contact is delivered back to the sending account, which
// makes it useful for exercising the capability tables without a server.
package loopback

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/conduit/pkg/plugins"
	"github.com/platinummonkey/conduit/pkg/protocol"
)

const (
	// PluginID is the module id.
	PluginID = "core-loopback"
	// ProtocolID is the protocol id accounts refer to.
	ProtocolID = "prpl-loopback"
	// Domain is the default username domain.
	Domain = "loopback"
)

// ErrNoUsername is returned by Login for an account without a username.
var ErrNoUsername = errors.New("loopback: account has no username")

// Message is one delivered message.
type Message struct {
	From   string
	To     string
	ChatID int
	Text   string
	Flags  protocol.MessageFlags
}

type chatRoom struct {
	id      int
	name    string
	topic   string
	members map[string]bool
}

// Network is the shared in-memory state behind every loopback account.
// Like the rest of the core it is only touched from the control goroutine.
type Network struct {
	Delivered  []Message
	Raw        [][]byte
	Keepalives int

	typing   map[string]protocol.TypingState
	buddies  map[string]*protocol.Buddy
	permit   map[string]bool
	deny     map[string]bool
	chats    map[int]*chatRoom
	nextChat int
	info     string
	idle     int
	icon     []byte
	status   map[string]protocol.Status
	media    map[string]protocol.MediaCaps
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	n := &Network{}
	n.Reset()
	return n
}

// Reset forgets everything the network has seen.
func (n *Network) Reset() {
	n.Delivered = nil
	n.Raw = nil
	n.Keepalives = 0
	n.typing = make(map[string]protocol.TypingState)
	n.buddies = make(map[string]*protocol.Buddy)
	n.permit = make(map[string]bool)
	n.deny = make(map[string]bool)
	n.chats = make(map[int]*chatRoom)
	n.nextChat = 0
	n.info = ""
	n.idle = 0
	n.icon = nil
	n.status = make(map[string]protocol.Status)
	n.media = make(map[string]protocol.MediaCaps)
}

// Buddy returns a buddy added through AddBuddy.
func (n *Network) Buddy(name string) (*protocol.Buddy, bool) {
	b, ok := n.buddies[normalize(name)]
	return b, ok
}

// Typing returns the last typing state sent to who.
func (n *Network) Typing(who string) protocol.TypingState { return n.typing[normalize(who)] }

// Permitted reports whether who is on the permit list.
func (n *Network) Permitted(who string) bool { return n.permit[normalize(who)] }

// Denied reports whether who is on the deny list.
func (n *Network) Denied(who string) bool { return n.deny[normalize(who)] }

// ChatTopic returns the topic of an open chat.
func (n *Network) ChatTopic(id int) (string, bool) {
	c, ok := n.chats[id]
	if !ok {
		return "", false
	}
	return c.topic, true
}

// ChatMembers returns the members of an open chat, sorted.
func (n *Network) ChatMembers(id int) []string {
	c, ok := n.chats[id]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(c.members))
	for m := range c.members {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

// Status returns the status last set for an account.
func (n *Network) Status(acct *protocol.Account) protocol.Status {
	return n.status[acct.Username]
}

// Info returns the profile text last set.
func (n *Network) Info() string { return n.info }

// Idle returns the idle time last reported.
func (n *Network) Idle() int { return n.idle }

// Icon returns the buddy icon last set.
func (n *Network) Icon() []byte { return n.icon }

func (n *Network) deliver(m Message) {
	n.Delivered = append(n.Delivered, m)
}

func normalize(who string) string {
	who = strings.ToLower(strings.TrimSpace(who))
	if who != "" && !strings.Contains(who, "@") {
		who += "@" + Domain
	}
	return who
}

// Protocol builds the protocol object backed by n.
func (n *Network) Protocol() (*protocol.Protocol, error) {
	return protocol.New(ProtocolID, "Loopback", &base{n: n},
		protocol.WithOptions(protocol.OptionChatTopic|protocol.OptionPasswordOptional|protocol.OptionSlashCommandsNative),
		protocol.WithUserSplits(protocol.UserSplit{Text: "Domain", Default: Domain, Separator: '@'}),
		protocol.WithAccountOptions(
			protocol.NewBoolOption("Echo messages back", "echo", true),
			protocol.NewIntOption("Keepalive interval", "keepalive", 30),
			protocol.NewStringOption("Resource", "resource", "conduit"),
			protocol.NewListOption("Connection security", "security", []protocol.Choice{
				{Label: "Use encryption if available", Value: "opportunistic"},
				{Label: "Require encryption", Value: "require"},
				{Label: "Plain text", Value: "none"},
			}),
		),
		protocol.WithIconSpec(protocol.IconSpec{
			Format:      []string{"png", "gif"},
			MinWidth:    32,
			MinHeight:   32,
			MaxWidth:    96,
			MaxHeight:   96,
			MaxFileSize: 8192,
			Scale:       protocol.IconScaleSend,
		}),
		protocol.WithClient(&client{n: n}),
		protocol.WithServer(&server{n: n}),
		protocol.WithIM(&im{n: n}),
		protocol.WithChat(&chat{n: n}),
		protocol.WithPrivacy(&privacy{n: n}),
		protocol.WithXfer(&xfer{n: n}),
		protocol.WithRoomlist(&roomlist{n: n}),
		protocol.WithAttention(&attention{n: n}),
		protocol.WithMedia(&media{n: n}),
		protocol.WithFactory(&factory{}),
	)
}

// Init is the module's entry point for Manager.RegisterStatic.
func (n *Network) Init(p *plugins.Plugin) bool {
	proto, err := n.Protocol()
	if err != nil {
		p.SetError(err.Error())
		return false
	}
	p.Describe(&plugins.Info{
		Magic:        plugins.Magic,
		MajorVersion: plugins.HostMajorVersion,
		MinorVersion: plugins.HostMinorVersion,
		Type:         plugins.TypeProtocol,
		ID:           PluginID,
		Name:         "Loopback",
		Version:      "1.0",
		Summary:      "Loopback protocol",
		Description:  "Delivers every message back to the account that sent it.",
		ExtraInfo:    proto,
		Actions: func(*plugins.Plugin) []plugins.Action {
			return []plugins.Action{{Label: "Reset network", Callback: func(*plugins.Plugin) { n.Reset() }}}
		},
	})
	return true
}

func statusTypes() []protocol.StatusType {
	return []protocol.StatusType{
		{ID: "available", Name: "Available", Primitive: protocol.StatusAvailable, Saveable: true, UserSettable: true},
		{ID: "away", Name: "Away", Primitive: protocol.StatusAway, Saveable: true, UserSettable: true},
		{ID: "invisible", Name: "Invisible", Primitive: protocol.StatusInvisible, Saveable: true, UserSettable: true},
		{ID: "offline", Name: "Offline", Primitive: protocol.StatusOffline, UserSettable: true},
	}
}

func loginName(acct *protocol.Account) string {
	if acct == nil {
		return ""
	}
	return normalize(acct.Username)
}

func fail(format string, args ...any) error {
	return fmt.Errorf("loopback: "+format, args...)
}
