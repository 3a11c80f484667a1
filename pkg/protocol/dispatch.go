package protocol

import "github.com/google/uuid"

// Table accessors tolerate a nil protocol so dispatch never panics.

func (p *Protocol) baseTable() *Table[Base] {
	if p == nil {
		return nil
	}
	return &p.base
}

func (p *Protocol) clientTable() *Table[Client] {
	if p == nil {
		return nil
	}
	return &p.client
}

func (p *Protocol) serverTable() *Table[Server] {
	if p == nil {
		return nil
	}
	return &p.server
}

func (p *Protocol) imTable() *Table[IM] {
	if p == nil {
		return nil
	}
	return &p.im
}

func (p *Protocol) chatTable() *Table[Chat] {
	if p == nil {
		return nil
	}
	return &p.chat
}

func (p *Protocol) privacyTable() *Table[Privacy] {
	if p == nil {
		return nil
	}
	return &p.privacy
}

func (p *Protocol) xferTable() *Table[XferOps] {
	if p == nil {
		return nil
	}
	return &p.xfer
}

func (p *Protocol) roomlistTable() *Table[RoomlistOps] {
	if p == nil {
		return nil
	}
	return &p.roomlist
}

func (p *Protocol) attentionTable() *Table[Attention] {
	if p == nil {
		return nil
	}
	return &p.attention
}

func (p *Protocol) mediaTable() *Table[Media] {
	if p == nil {
		return nil
	}
	return &p.media
}

func (p *Protocol) factoryTable() *Table[Factory] {
	if p == nil {
		return nil
	}
	return &p.factory
}

// Base

// ListIcon returns the icon name, or "" when unavailable.
func ListIcon(p *Protocol, acct *Account, buddy *Buddy) string {
	return call(p.baseTable(), "", func(b Base) string { return b.ListIcon(acct, buddy) })
}

// StatusTypes returns the statuses an account may use, or nil.
func StatusTypes(p *Protocol, acct *Account) []StatusType {
	return call(p.baseTable(), nil, func(b Base) []StatusType { return b.StatusTypes(acct) })
}

// Login starts connecting conn. Returns ErrNotSupported when the protocol
// has been released.
func Login(p *Protocol, conn *Connection) error {
	return call(p.baseTable(), ErrNotSupported, func(b Base) error { return b.Login(conn) })
}

// Close tears down conn. No-op when unavailable.
func Close(p *Protocol, conn *Connection) {
	do(p.baseTable(), func(b Base) { b.Close(conn) })
}

// Client

// ListEmblem returns the buddy's emblem name, or "".
func ListEmblem(p *Protocol, buddy *Buddy) string {
	return call(p.clientTable(), "", func(c Client) string { return c.ListEmblem(buddy) })
}

// StatusText returns the buddy's status line, or "".
func StatusText(p *Protocol, buddy *Buddy) string {
	return call(p.clientTable(), "", func(c Client) string { return c.StatusText(buddy) })
}

// TooltipText returns tooltip lines for buddy, or nil.
func TooltipText(p *Protocol, buddy *Buddy, full bool) []TooltipEntry {
	return call(p.clientTable(), nil, func(c Client) []TooltipEntry { return c.TooltipText(buddy, full) })
}

// Actions returns the protocol's menu actions for conn, or nil.
func Actions(p *Protocol, conn *Connection) []Action {
	return call(p.clientTable(), nil, func(c Client) []Action { return c.Actions(conn) })
}

// Normalize returns the canonical form of who. Without a client table who
// is returned unchanged.
func Normalize(p *Protocol, acct *Account, who string) string {
	return call(p.clientTable(), who, func(c Client) string { return c.Normalize(acct, who) })
}

// OfflineMessage reports whether messages can be sent to an offline buddy.
func OfflineMessage(p *Protocol, buddy *Buddy) bool {
	return call(p.clientTable(), false, func(c Client) bool { return c.OfflineMessage(buddy) })
}

// AccountTextTable returns protocol-specific UI strings, or nil.
func AccountTextTable(p *Protocol, acct *Account) map[string]string {
	return call(p.clientTable(), nil, func(c Client) map[string]string { return c.AccountTextTable(acct) })
}

// MaxMessageSize returns the message size limit; 0 means unknown and -1
// means unlimited.
func MaxMessageSize(p *Protocol, conn *Connection) int {
	return call(p.clientTable(), 0, func(c Client) int { return c.MaxMessageSize(conn) })
}

// Server

// RegisterUser creates acct on the server. ErrNotSupported when absent.
func RegisterUser(p *Protocol, acct *Account) error {
	return call(p.serverTable(), ErrNotSupported, func(s Server) error { return s.RegisterUser(acct) })
}

// UnregisterUser deletes acct on the server. ErrNotSupported when absent.
func UnregisterUser(p *Protocol, acct *Account) error {
	return call(p.serverTable(), ErrNotSupported, func(s Server) error { return s.UnregisterUser(acct) })
}

func SetInfo(p *Protocol, conn *Connection, info string) {
	do(p.serverTable(), func(s Server) { s.SetInfo(conn, info) })
}

func GetInfo(p *Protocol, conn *Connection, who string) {
	do(p.serverTable(), func(s Server) { s.GetInfo(conn, who) })
}

func SetStatus(p *Protocol, acct *Account, status Status) {
	do(p.serverTable(), func(s Server) { s.SetStatus(acct, status) })
}

func SetIdle(p *Protocol, conn *Connection, seconds int) {
	do(p.serverTable(), func(s Server) { s.SetIdle(conn, seconds) })
}

func ChangePassword(p *Protocol, conn *Connection, oldPass, newPass string) {
	do(p.serverTable(), func(s Server) { s.ChangePassword(conn, oldPass, newPass) })
}

func AddBuddy(p *Protocol, conn *Connection, buddy *Buddy, message string) {
	do(p.serverTable(), func(s Server) { s.AddBuddy(conn, buddy, message) })
}

func RemoveBuddy(p *Protocol, conn *Connection, buddy *Buddy) {
	do(p.serverTable(), func(s Server) { s.RemoveBuddy(conn, buddy) })
}

func AliasBuddy(p *Protocol, conn *Connection, who, alias string) {
	do(p.serverTable(), func(s Server) { s.AliasBuddy(conn, who, alias) })
}

func GroupBuddy(p *Protocol, conn *Connection, who, oldGroup, newGroup string) {
	do(p.serverTable(), func(s Server) { s.GroupBuddy(conn, who, oldGroup, newGroup) })
}

func RenameGroup(p *Protocol, conn *Connection, oldName, newName string) {
	do(p.serverTable(), func(s Server) { s.RenameGroup(conn, oldName, newName) })
}

func SetBuddyIcon(p *Protocol, conn *Connection, img []byte) {
	do(p.serverTable(), func(s Server) { s.SetBuddyIcon(conn, img) })
}

func Keepalive(p *Protocol, conn *Connection) {
	do(p.serverTable(), func(s Server) { s.Keepalive(conn) })
}

// KeepaliveInterval returns seconds between keepalives; 0 disables them.
func KeepaliveInterval(p *Protocol) int {
	return call(p.serverTable(), 0, func(s Server) int { return s.KeepaliveInterval() })
}

// SendRaw writes buf directly to the wire. Returns bytes written, or -1.
func SendRaw(p *Protocol, conn *Connection, buf []byte) int {
	return call(p.serverTable(), -1, func(s Server) int { return s.SendRaw(conn, buf) })
}

// IM

// SendIM sends message to who. Returns a positive value on success, 0 when
// the message was consumed without sending and -1 when unsupported.
func SendIM(p *Protocol, conn *Connection, who, message string, flags MessageFlags) int {
	return call(p.imTable(), -1, func(im IM) int { return im.Send(conn, who, message, flags) })
}

// SendTyping sends a typing notification. Returns the number of seconds
// after which it should be resent, or 0.
func SendTyping(p *Protocol, conn *Connection, who string, state TypingState) int {
	return call(p.imTable(), 0, func(im IM) int { return im.SendTyping(conn, who, state) })
}

// Chat

// ChatInfo returns the fields needed to join a chat, or nil.
func ChatInfo(p *Protocol, conn *Connection) []ChatEntry {
	return call(p.chatTable(), nil, func(c Chat) []ChatEntry { return c.Info(conn) })
}

// ChatInfoDefaults returns default join fields for a room name, or nil.
func ChatInfoDefaults(p *Protocol, conn *Connection, name string) map[string]string {
	return call(p.chatTable(), nil, func(c Chat) map[string]string { return c.InfoDefaults(conn, name) })
}

func JoinChat(p *Protocol, conn *Connection, components map[string]string) {
	do(p.chatTable(), func(c Chat) { c.Join(conn, components) })
}

func RejectChat(p *Protocol, conn *Connection, components map[string]string) {
	do(p.chatTable(), func(c Chat) { c.Reject(conn, components) })
}

// ChatName returns the room name for join components, or "".
func ChatName(p *Protocol, components map[string]string) string {
	return call(p.chatTable(), "", func(c Chat) string { return c.Name(components) })
}

func ChatInvite(p *Protocol, conn *Connection, id int, message, who string) {
	do(p.chatTable(), func(c Chat) { c.Invite(conn, id, message, who) })
}

func ChatLeave(p *Protocol, conn *Connection, id int) {
	do(p.chatTable(), func(c Chat) { c.Leave(conn, id) })
}

// ChatSend sends to a chat. Returns -1 when unsupported.
func ChatSend(p *Protocol, conn *Connection, id int, message string, flags MessageFlags) int {
	return call(p.chatTable(), -1, func(c Chat) int { return c.Send(conn, id, message, flags) })
}

func ChatSetTopic(p *Protocol, conn *Connection, id int, topic string) {
	do(p.chatTable(), func(c Chat) { c.SetTopic(conn, id, topic) })
}

// ChatUserRealName returns a participant's real name, or "".
func ChatUserRealName(p *Protocol, conn *Connection, id int, who string) string {
	return call(p.chatTable(), "", func(c Chat) string { return c.UserRealName(conn, id, who) })
}

func ChatWhisper(p *Protocol, conn *Connection, id int, who, message string) {
	do(p.chatTable(), func(c Chat) { c.Whisper(conn, id, who, message) })
}

// Privacy

func AddPermit(p *Protocol, conn *Connection, name string) {
	do(p.privacyTable(), func(pr Privacy) { pr.AddPermit(conn, name) })
}

func AddDeny(p *Protocol, conn *Connection, name string) {
	do(p.privacyTable(), func(pr Privacy) { pr.AddDeny(conn, name) })
}

func RemovePermit(p *Protocol, conn *Connection, name string) {
	do(p.privacyTable(), func(pr Privacy) { pr.RemovePermit(conn, name) })
}

func RemoveDeny(p *Protocol, conn *Connection, name string) {
	do(p.privacyTable(), func(pr Privacy) { pr.RemoveDeny(conn, name) })
}

func SetPermitDeny(p *Protocol, conn *Connection) {
	do(p.privacyTable(), func(pr Privacy) { pr.SetPermitDeny(conn) })
}

// Xfer

// CanReceiveFile reports whether who can be sent files. False when absent.
func CanReceiveFile(p *Protocol, conn *Connection, who string) bool {
	return call(p.xferTable(), false, func(x XferOps) bool { return x.CanReceive(conn, who) })
}

func SendFile(p *Protocol, conn *Connection, who, filename string) {
	do(p.xferTable(), func(x XferOps) { x.Send(conn, who, filename) })
}

// NewXferFor asks the protocol to prepare an outgoing transfer, or nil.
func NewXferFor(p *Protocol, conn *Connection, who string) *Xfer {
	return call(p.xferTable(), nil, func(x XferOps) *Xfer { return x.New(conn, who) })
}

// Roomlist

// GetRoomlist starts listing rooms. Returns nil when unsupported.
func GetRoomlist(p *Protocol, conn *Connection) *Roomlist {
	return call(p.roomlistTable(), nil, func(r RoomlistOps) *Roomlist { return r.Get(conn) })
}

func CancelRoomlist(p *Protocol, list *Roomlist) {
	do(p.roomlistTable(), func(r RoomlistOps) { r.Cancel(list) })
}

func ExpandRoomCategory(p *Protocol, list *Roomlist, category *Room) {
	do(p.roomlistTable(), func(r RoomlistOps) { r.ExpandCategory(list, category) })
}

// SerializeRoom returns a string form of room, or "".
func SerializeRoom(p *Protocol, room *Room) string {
	return call(p.roomlistTable(), "", func(r RoomlistOps) string { return r.Serialize(room) })
}

// Attention

// SendAttention buzzes who. False when unsupported.
func SendAttention(p *Protocol, conn *Connection, who string, kind int) bool {
	return call(p.attentionTable(), false, func(a Attention) bool { return a.Send(conn, who, kind) })
}

// AttentionTypes returns supported attention kinds, or nil.
func AttentionTypes(p *Protocol, acct *Account) []AttentionType {
	return call(p.attentionTable(), nil, func(a Attention) []AttentionType { return a.Types(acct) })
}

// Media

// InitiateMedia starts a media session. False when unsupported.
func InitiateMedia(p *Protocol, acct *Account, who string, caps MediaCaps) bool {
	return call(p.mediaTable(), false, func(m Media) bool { return m.Initiate(acct, who, caps) })
}

// MediaCapsFor returns who's media capabilities, or MediaCapsNone.
func MediaCapsFor(p *Protocol, acct *Account, who string) MediaCaps {
	return call(p.mediaTable(), MediaCapsNone, func(m Media) MediaCaps { return m.Caps(acct, who) })
}

// Factory. Without a factory, or when it returns nil, a plain object is
// built.

// NewConnection creates the connection object for acct.
func NewConnection(p *Protocol, acct *Account) *Connection {
	conn := call(p.factoryTable(), (*Connection)(nil), func(f Factory) *Connection { return f.NewConnection(acct) })
	if conn == nil {
		conn = &Connection{}
	}
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	conn.Account = acct
	return conn
}

// NewRoomlist creates the room list object for acct.
func NewRoomlist(p *Protocol, acct *Account) *Roomlist {
	list := call(p.factoryTable(), (*Roomlist)(nil), func(f Factory) *Roomlist { return f.NewRoomlist(acct) })
	if list == nil {
		list = &Roomlist{}
	}
	list.Account = acct
	return list
}

// NewWhiteboard creates a whiteboard session object.
func NewWhiteboard(p *Protocol, acct *Account, who string, id int) *Whiteboard {
	wb := call(p.factoryTable(), (*Whiteboard)(nil), func(f Factory) *Whiteboard { return f.NewWhiteboard(acct, who, id) })
	if wb == nil {
		wb = &Whiteboard{Who: who, Session: id}
	}
	if wb.ID == "" {
		wb.ID = uuid.NewString()
	}
	wb.Account = acct
	return wb
}

// NewXfer creates a file transfer object.
func NewXfer(p *Protocol, acct *Account, kind XferType, who string) *Xfer {
	x := call(p.factoryTable(), (*Xfer)(nil), func(f Factory) *Xfer { return f.NewXfer(acct, kind, who) })
	if x == nil {
		x = &Xfer{Type: kind, Who: who}
	}
	if x.ID == "" {
		x.ID = uuid.NewString()
	}
	x.Account = acct
	return x
}
