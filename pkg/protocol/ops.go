package protocol

// Base is the mandatory capability group every protocol supplies.
type Base interface {
	// ListIcon returns the icon name for the account or buddy.
	ListIcon(acct *Account, buddy *Buddy) string
	StatusTypes(acct *Account) []StatusType
	// Login starts connecting conn. The connection is already attached to
	// its account.
	Login(conn *Connection) error
	Close(conn *Connection)
}

// Client holds UI hints.
type Client interface {
	ListEmblem(buddy *Buddy) string
	StatusText(buddy *Buddy) string
	TooltipText(buddy *Buddy, full bool) []TooltipEntry
	Actions(conn *Connection) []Action
	Normalize(acct *Account, who string) string
	OfflineMessage(buddy *Buddy) bool
	AccountTextTable(acct *Account) map[string]string
	MaxMessageSize(conn *Connection) int
}

// Server holds account-level server operations.
type Server interface {
	RegisterUser(acct *Account) error
	UnregisterUser(acct *Account) error
	SetInfo(conn *Connection, info string)
	GetInfo(conn *Connection, who string)
	SetStatus(acct *Account, status Status)
	SetIdle(conn *Connection, seconds int)
	ChangePassword(conn *Connection, oldPass, newPass string)
	AddBuddy(conn *Connection, buddy *Buddy, message string)
	RemoveBuddy(conn *Connection, buddy *Buddy)
	AliasBuddy(conn *Connection, who, alias string)
	GroupBuddy(conn *Connection, who, oldGroup, newGroup string)
	RenameGroup(conn *Connection, oldName, newName string)
	SetBuddyIcon(conn *Connection, img []byte)
	Keepalive(conn *Connection)
	KeepaliveInterval() int
	SendRaw(conn *Connection, buf []byte) int
}

// IM holds one-to-one messaging.
type IM interface {
	Send(conn *Connection, who, message string, flags MessageFlags) int
	SendTyping(conn *Connection, who string, state TypingState) int
}

// Chat holds group chat.
type Chat interface {
	Info(conn *Connection) []ChatEntry
	InfoDefaults(conn *Connection, name string) map[string]string
	Join(conn *Connection, components map[string]string)
	Reject(conn *Connection, components map[string]string)
	Name(components map[string]string) string
	Invite(conn *Connection, id int, message, who string)
	Leave(conn *Connection, id int)
	Send(conn *Connection, id int, message string, flags MessageFlags) int
	SetTopic(conn *Connection, id int, topic string)
	UserRealName(conn *Connection, id int, who string) string
	Whisper(conn *Connection, id int, who, message string)
}

// Privacy holds permit and deny lists.
type Privacy interface {
	AddPermit(conn *Connection, name string)
	AddDeny(conn *Connection, name string)
	RemovePermit(conn *Connection, name string)
	RemoveDeny(conn *Connection, name string)
	SetPermitDeny(conn *Connection)
}

// XferOps holds file transfer.
type XferOps interface {
	CanReceive(conn *Connection, who string) bool
	Send(conn *Connection, who, filename string)
	New(conn *Connection, who string) *Xfer
}

// RoomlistOps holds server room listing.
type RoomlistOps interface {
	Get(conn *Connection) *Roomlist
	Cancel(list *Roomlist)
	ExpandCategory(list *Roomlist, category *Room)
	Serialize(room *Room) string
}

// Attention holds "buzz" support.
type Attention interface {
	Send(conn *Connection, who string, kind int) bool
	Types(acct *Account) []AttentionType
}

// Media holds voice and video sessions.
type Media interface {
	Initiate(acct *Account, who string, caps MediaCaps) bool
	Caps(acct *Account, who string) MediaCaps
}

// Factory constructs protocol-specific objects.
type Factory interface {
	NewConnection(acct *Account) *Connection
	NewRoomlist(acct *Account) *Roomlist
	NewWhiteboard(acct *Account, who string, id int) *Whiteboard
	NewXfer(acct *Account, kind XferType, who string) *Xfer
}

// UnimplementedClient can be embedded to get default Client behaviour.
type UnimplementedClient struct{}

func (UnimplementedClient) ListEmblem(*Buddy) string                    { return "" }
func (UnimplementedClient) StatusText(*Buddy) string                    { return "" }
func (UnimplementedClient) TooltipText(*Buddy, bool) []TooltipEntry     { return nil }
func (UnimplementedClient) Actions(*Connection) []Action                { return nil }
func (UnimplementedClient) Normalize(_ *Account, who string) string     { return who }
func (UnimplementedClient) OfflineMessage(*Buddy) bool                  { return false }
func (UnimplementedClient) AccountTextTable(*Account) map[string]string { return nil }
func (UnimplementedClient) MaxMessageSize(*Connection) int              { return 0 }

// UnimplementedServer can be embedded to get default Server behaviour.
type UnimplementedServer struct{}

func (UnimplementedServer) RegisterUser(*Account) error                    { return ErrNotSupported }
func (UnimplementedServer) UnregisterUser(*Account) error                  { return ErrNotSupported }
func (UnimplementedServer) SetInfo(*Connection, string)                    {}
func (UnimplementedServer) GetInfo(*Connection, string)                    {}
func (UnimplementedServer) SetStatus(*Account, Status)                     {}
func (UnimplementedServer) SetIdle(*Connection, int)                       {}
func (UnimplementedServer) ChangePassword(*Connection, string, string)     {}
func (UnimplementedServer) AddBuddy(*Connection, *Buddy, string)           {}
func (UnimplementedServer) RemoveBuddy(*Connection, *Buddy)                {}
func (UnimplementedServer) AliasBuddy(*Connection, string, string)         {}
func (UnimplementedServer) GroupBuddy(*Connection, string, string, string) {}
func (UnimplementedServer) RenameGroup(*Connection, string, string)        {}
func (UnimplementedServer) SetBuddyIcon(*Connection, []byte)               {}
func (UnimplementedServer) Keepalive(*Connection)                          {}
func (UnimplementedServer) KeepaliveInterval() int                         { return 0 }
func (UnimplementedServer) SendRaw(*Connection, []byte) int                { return -1 }

// UnimplementedIM can be embedded to get default IM behaviour.
type UnimplementedIM struct{}

func (UnimplementedIM) Send(*Connection, string, string, MessageFlags) int { return -1 }
func (UnimplementedIM) SendTyping(*Connection, string, TypingState) int    { return 0 }

// UnimplementedChat can be embedded to get default Chat behaviour.
type UnimplementedChat struct{}

func (UnimplementedChat) Info(*Connection) []ChatEntry                       { return nil }
func (UnimplementedChat) InfoDefaults(*Connection, string) map[string]string { return nil }
func (UnimplementedChat) Join(*Connection, map[string]string)                {}
func (UnimplementedChat) Reject(*Connection, map[string]string)              {}
func (UnimplementedChat) Name(map[string]string) string                      { return "" }
func (UnimplementedChat) Invite(*Connection, int, string, string)            {}
func (UnimplementedChat) Leave(*Connection, int)                             {}
func (UnimplementedChat) Send(*Connection, int, string, MessageFlags) int    { return -1 }
func (UnimplementedChat) SetTopic(*Connection, int, string)                  {}
func (UnimplementedChat) UserRealName(*Connection, int, string) string       { return "" }
func (UnimplementedChat) Whisper(*Connection, int, string, string)           {}

// UnimplementedPrivacy can be embedded to get default Privacy behaviour.
type UnimplementedPrivacy struct{}

func (UnimplementedPrivacy) AddPermit(*Connection, string)    {}
func (UnimplementedPrivacy) AddDeny(*Connection, string)      {}
func (UnimplementedPrivacy) RemovePermit(*Connection, string) {}
func (UnimplementedPrivacy) RemoveDeny(*Connection, string)   {}
func (UnimplementedPrivacy) SetPermitDeny(*Connection)        {}

// UnimplementedXfer can be embedded to get default XferOps behaviour.
type UnimplementedXfer struct{}

func (UnimplementedXfer) CanReceive(*Connection, string) bool { return false }
func (UnimplementedXfer) Send(*Connection, string, string)    {}
func (UnimplementedXfer) New(*Connection, string) *Xfer       { return nil }

// UnimplementedRoomlist can be embedded to get default RoomlistOps behaviour.
type UnimplementedRoomlist struct{}

func (UnimplementedRoomlist) Get(*Connection) *Roomlist       { return nil }
func (UnimplementedRoomlist) Cancel(*Roomlist)                {}
func (UnimplementedRoomlist) ExpandCategory(*Roomlist, *Room) {}
func (UnimplementedRoomlist) Serialize(*Room) string          { return "" }

// UnimplementedAttention can be embedded to get default Attention behaviour.
type UnimplementedAttention struct{}

func (UnimplementedAttention) Send(*Connection, string, int) bool { return false }
func (UnimplementedAttention) Types(*Account) []AttentionType     { return nil }

// UnimplementedMedia can be embedded to get default Media behaviour.
type UnimplementedMedia struct{}

func (UnimplementedMedia) Initiate(*Account, string, MediaCaps) bool { return false }
func (UnimplementedMedia) Caps(*Account, string) MediaCaps           { return MediaCapsNone }

// UnimplementedFactory can be embedded to get default Factory behaviour.
// Returning nil makes the dispatch layer build a plain object.
type UnimplementedFactory struct{}

func (UnimplementedFactory) NewConnection(*Account) *Connection              { return nil }
func (UnimplementedFactory) NewRoomlist(*Account) *Roomlist                  { return nil }
func (UnimplementedFactory) NewWhiteboard(*Account, string, int) *Whiteboard { return nil }
func (UnimplementedFactory) NewXfer(*Account, XferType, string) *Xfer        { return nil }
