package loopback

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

type base struct{ n *Network }

func (b *base) ListIcon(*protocol.Account, *protocol.Buddy) string { return "loopback" }

func (b *base) StatusTypes(*protocol.Account) []protocol.StatusType { return statusTypes() }

func (b *base) Login(conn *protocol.Connection) error {
	name := loginName(conn.Account)
	if name == "" {
		return ErrNoUsername
	}
	if conn.Account.Setting("security", "opportunistic") == "require" {
		return fail("%s: encryption is required but not offered", name)
	}
	conn.DisplayName = name
	conn.State = protocol.Connected
	return nil
}

func (b *base) Close(conn *protocol.Connection) {
	conn.State = protocol.Disconnected
}

type client struct{ n *Network }

func (c *client) ListEmblem(buddy *protocol.Buddy) string {
	if c.n.Denied(buddy.Name) {
		return "blocked"
	}
	return ""
}

func (c *client) StatusText(buddy *protocol.Buddy) string {
	if b, ok := c.n.Buddy(buddy.Name); ok && b.Alias != "" {
		return "aka " + b.Alias
	}
	return ""
}

func (c *client) TooltipText(buddy *protocol.Buddy, full bool) []protocol.TooltipEntry {
	entries := []protocol.TooltipEntry{{Label: "Address", Value: normalize(buddy.Name)}}
	if full && buddy.Group != "" {
		entries = append(entries, protocol.TooltipEntry{Label: "Group", Value: buddy.Group})
	}
	return entries
}

func (c *client) Actions(*protocol.Connection) []protocol.Action {
	return []protocol.Action{{
		Label:    "Clear delivered messages",
		Callback: func(*protocol.Connection) { c.n.Delivered = nil },
	}}
}

func (c *client) Normalize(_ *protocol.Account, who string) string { return normalize(who) }

func (c *client) OfflineMessage(*protocol.Buddy) bool { return true }

func (c *client) AccountTextTable(*protocol.Account) map[string]string {
	return map[string]string{"login_label": "Address"}
}

func (c *client) MaxMessageSize(*protocol.Connection) int { return 4096 }

type server struct {
	protocol.UnimplementedServer
	n *Network
}

func (s *server) SetInfo(_ *protocol.Connection, info string) { s.n.info = info }

func (s *server) SetStatus(acct *protocol.Account, status protocol.Status) {
	s.n.status[acct.Username] = status
}

func (s *server) SetIdle(_ *protocol.Connection, seconds int) { s.n.idle = seconds }

func (s *server) AddBuddy(_ *protocol.Connection, buddy *protocol.Buddy, _ string) {
	b := *buddy
	s.n.buddies[normalize(buddy.Name)] = &b
}

func (s *server) RemoveBuddy(_ *protocol.Connection, buddy *protocol.Buddy) {
	delete(s.n.buddies, normalize(buddy.Name))
}

func (s *server) AliasBuddy(_ *protocol.Connection, who, alias string) {
	if b, ok := s.n.Buddy(who); ok {
		b.Alias = alias
	}
}

func (s *server) GroupBuddy(_ *protocol.Connection, who, _, newGroup string) {
	if b, ok := s.n.Buddy(who); ok {
		b.Group = newGroup
	}
}

func (s *server) RenameGroup(_ *protocol.Connection, oldName, newName string) {
	for _, b := range s.n.buddies {
		if b.Group == oldName {
			b.Group = newName
		}
	}
}

func (s *server) SetBuddyIcon(_ *protocol.Connection, img []byte) { s.n.icon = img }

func (s *server) Keepalive(*protocol.Connection) { s.n.Keepalives++ }

func (s *server) KeepaliveInterval() int { return 30 }

func (s *server) SendRaw(_ *protocol.Connection, buf []byte) int {
	s.n.Raw = append(s.n.Raw, append([]byte(nil), buf...))
	return len(buf)
}

type im struct{ n *Network }

func (i *im) Send(conn *protocol.Connection, who, message string, flags protocol.MessageFlags) int {
	to := normalize(who)
	if i.n.Denied(to) {
		return -1
	}
	from := loginName(conn.Account)
	i.n.deliver(Message{From: from, To: to, Text: message, Flags: flags | protocol.MessageSend})
	if conn.Account.Setting("echo", true) == true {
		i.n.deliver(Message{From: to, To: from, Text: message, Flags: protocol.MessageReceive})
	}
	return 1
}

func (i *im) SendTyping(_ *protocol.Connection, who string, state protocol.TypingState) int {
	i.n.typing[normalize(who)] = state
	return 0
}

type chat struct{ n *Network }

func (c *chat) Info(*protocol.Connection) []protocol.ChatEntry {
	return []protocol.ChatEntry{
		{Label: "_Room:", Identifier: "room", Required: true},
		{Label: "_Password:", Identifier: "password", Secret: true},
	}
}

func (c *chat) InfoDefaults(_ *protocol.Connection, name string) map[string]string {
	return map[string]string{"room": name}
}

func (c *chat) Join(conn *protocol.Connection, components map[string]string) {
	name := components["room"]
	if name == "" {
		return
	}
	for _, room := range c.n.chats {
		if room.name == name {
			room.members[loginName(conn.Account)] = true
			return
		}
	}
	c.n.nextChat++
	c.n.chats[c.n.nextChat] = &chatRoom{
		id:      c.n.nextChat,
		name:    name,
		members: map[string]bool{loginName(conn.Account): true},
	}
}

func (c *chat) Reject(*protocol.Connection, map[string]string) {}

func (c *chat) Name(components map[string]string) string { return components["room"] }

func (c *chat) Invite(_ *protocol.Connection, id int, _, who string) {
	if room, ok := c.n.chats[id]; ok {
		room.members[normalize(who)] = true
	}
}

func (c *chat) Leave(conn *protocol.Connection, id int) {
	room, ok := c.n.chats[id]
	if !ok {
		return
	}
	delete(room.members, loginName(conn.Account))
	if len(room.members) == 0 {
		delete(c.n.chats, id)
	}
}

func (c *chat) Send(conn *protocol.Connection, id int, message string, flags protocol.MessageFlags) int {
	room, ok := c.n.chats[id]
	if !ok {
		return -1
	}
	from := loginName(conn.Account)
	for member := range room.members {
		c.n.deliver(Message{From: from, To: member, ChatID: id, Text: message, Flags: flags | protocol.MessageSend})
	}
	return 0
}

func (c *chat) SetTopic(_ *protocol.Connection, id int, topic string) {
	if room, ok := c.n.chats[id]; ok {
		room.topic = topic
	}
}

func (c *chat) UserRealName(_ *protocol.Connection, id int, who string) string {
	if room, ok := c.n.chats[id]; ok && room.members[normalize(who)] {
		return strings.SplitN(normalize(who), "@", 2)[0]
	}
	return ""
}

func (c *chat) Whisper(conn *protocol.Connection, id int, who, message string) {
	if room, ok := c.n.chats[id]; ok && room.members[normalize(who)] {
		c.n.deliver(Message{
			From:   loginName(conn.Account),
			To:     normalize(who),
			ChatID: id,
			Text:   message,
			Flags:  protocol.MessageSend | protocol.MessageWhisper,
		})
	}
}

type privacy struct{ n *Network }

func (p *privacy) AddPermit(_ *protocol.Connection, name string) { p.n.permit[normalize(name)] = true }
func (p *privacy) AddDeny(_ *protocol.Connection, name string)   { p.n.deny[normalize(name)] = true }
func (p *privacy) RemovePermit(_ *protocol.Connection, name string) {
	delete(p.n.permit, normalize(name))
}
func (p *privacy) RemoveDeny(_ *protocol.Connection, name string) { delete(p.n.deny, normalize(name)) }

// SetPermitDeny drops deny entries that are also permitted.
func (p *privacy) SetPermitDeny(*protocol.Connection) {
	for who := range p.n.permit {
		delete(p.n.deny, who)
	}
}

type xfer struct{ n *Network }

func (x *xfer) CanReceive(_ *protocol.Connection, who string) bool { return !x.n.Denied(who) }

func (x *xfer) Send(conn *protocol.Connection, who, filename string) {
	x.n.deliver(Message{
		From:  loginName(conn.Account),
		To:    normalize(who),
		Text:  "file:" + filename,
		Flags: protocol.MessageSend | protocol.MessageSystem,
	})
}

func (x *xfer) New(conn *protocol.Connection, who string) *protocol.Xfer {
	return &protocol.Xfer{Account: conn.Account, Type: protocol.XferSend, Who: normalize(who)}
}

type roomlist struct{ n *Network }

func (r *roomlist) Get(conn *protocol.Connection) *protocol.Roomlist {
	list := &protocol.Roomlist{Account: conn.Account}
	open := &protocol.Room{Type: protocol.RoomTypeCategory, Name: "Open rooms"}
	list.Rooms = append(list.Rooms, open)
	for id, room := range r.n.chats {
		list.Rooms = append(list.Rooms, &protocol.Room{
			Type:   protocol.RoomTypeRoom,
			Name:   room.name,
			Parent: open,
			Fields: map[string]string{"id": strconv.Itoa(id), "topic": room.topic},
		})
	}
	return list
}

func (r *roomlist) Cancel(list *protocol.Roomlist) { list.InProgress = false }

func (r *roomlist) ExpandCategory(_ *protocol.Roomlist, category *protocol.Room) {
	category.Expanded = true
}

func (r *roomlist) Serialize(room *protocol.Room) string {
	if room.Parent != nil {
		return fmt.Sprintf("%s/%s", room.Parent.Name, room.Name)
	}
	return room.Name
}

type attention struct{ n *Network }

func (a *attention) Send(conn *protocol.Connection, who string, kind int) bool {
	types := attentionTypes()
	if kind < 0 || kind >= len(types) {
		return false
	}
	a.n.deliver(Message{
		From:  loginName(conn.Account),
		To:    normalize(who),
		Text:  types[kind].OutgoingDesc,
		Flags: protocol.MessageSend | protocol.MessageNotify,
	})
	return true
}

func (a *attention) Types(*protocol.Account) []protocol.AttentionType { return attentionTypes() }

func attentionTypes() []protocol.AttentionType {
	return []protocol.AttentionType{
		{Name: "Poke", IncomingDesc: "%s has poked you!", OutgoingDesc: "Poking %s...", IconName: "poke"},
		{Name: "Buzz", IncomingDesc: "%s has buzzed you!", OutgoingDesc: "Buzzing %s...", IconName: "buzz"},
	}
}

type media struct{ n *Network }

func (m *media) Initiate(_ *protocol.Account, who string, caps protocol.MediaCaps) bool {
	if caps&m.Caps(nil, who) == 0 {
		return false
	}
	m.n.media[normalize(who)] = caps
	return true
}

func (m *media) Caps(*protocol.Account, string) protocol.MediaCaps {
	return protocol.MediaCapsAudio | protocol.MediaCapsVideo | protocol.MediaCapsAudioVideo
}

// factory only customizes connections; rooms lists, whiteboards and
// transfers use the plain defaults.
type factory struct {
	protocol.UnimplementedFactory
}

func (factory) NewConnection(*protocol.Account) *protocol.Connection {
	return &protocol.Connection{ProtoData: &session{}}
}

// session is the per-connection protocol data.
type session struct {
	Sequence int
}
