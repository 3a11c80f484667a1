package protocol

import "fmt"

// Options are protocol-wide behaviour flags.
type Options uint32

const (
	// OptionUniqueChatName means chat room names are unique server-wide.
	OptionUniqueChatName Options = 1 << iota
	// OptionChatTopic means chats support topics.
	OptionChatTopic
	// OptionNoPassword means accounts do not use a password.
	OptionNoPassword
	// OptionMailCheck means the protocol can check for new mail.
	OptionMailCheck
	// OptionIMImage means images can be sent inline in IMs.
	OptionIMImage
	// OptionPasswordOptional means a password may be left empty.
	OptionPasswordOptional
	// OptionUsePointSize means font sizes are in points rather than HTML sizes.
	OptionUsePointSize
	// OptionRegisterNoScreenName means account registration does not need a username.
	OptionRegisterNoScreenName
	// OptionSlashCommandsNative means slash commands are passed to the server.
	OptionSlashCommandsNative
	// OptionInviteMessage means chat invitations carry a message.
	OptionInviteMessage
	// OptionAuthorizationGrantedMessage means granting authorization carries a message.
	OptionAuthorizationGrantedMessage
	// OptionAuthorizationDeniedMessage means denying authorization carries a message.
	OptionAuthorizationDeniedMessage
)

// Has reports whether all bits in flag are set.
func (o Options) Has(flag Options) bool {
	return o&flag == flag
}

// UserSplit describes one protocol-specific sub-field of a username, such as
// the server part of "user@server".
type UserSplit struct {
	Text      string
	Default   string
	Separator rune
	// Reverse splits on the last separator rather than the first.
	Reverse bool
	// Constant fields are shown but not editable.
	Constant bool
}

// Split breaks username into the local part and this split's field. When the
// separator is absent the field takes its default.
func (s UserSplit) Split(username string) (string, string) {
	runes := []rune(username)
	idx := -1
	if s.Reverse {
		for i := len(runes) - 1; i >= 0; i-- {
			if runes[i] == s.Separator {
				idx = i
				break
			}
		}
	} else {
		for i, r := range runes {
			if r == s.Separator {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return username, s.Default
	}
	return string(runes[:idx]), string(runes[idx+1:])
}

// IconSpec describes the buddy icons a protocol accepts.
type IconSpec struct {
	Format      []string
	MinWidth    int
	MinHeight   int
	MaxWidth    int
	MaxHeight   int
	MaxFileSize int64
	Scale       IconScale
}

// IconScale says when the host should rescale icons before upload.
type IconScale int

const (
	IconScaleNone    IconScale = 0
	IconScaleDisplay IconScale = 1 << 0
	IconScaleSend    IconScale = 1 << 1
)

// Accepts reports whether an icon of the given format and size is acceptable
// without rescaling.
func (s *IconSpec) Accepts(format string, width, height int, size int64) bool {
	if s == nil {
		return false
	}
	formatOK := false
	for _, f := range s.Format {
		if f == format {
			formatOK = true
			break
		}
	}
	if !formatOK {
		return false
	}
	if width < s.MinWidth || height < s.MinHeight {
		return false
	}
	if (s.MaxWidth > 0 && width > s.MaxWidth) || (s.MaxHeight > 0 && height > s.MaxHeight) {
		return false
	}
	return s.MaxFileSize <= 0 || size <= s.MaxFileSize
}

// StatusPrimitive is the coarse kind of a status.
type StatusPrimitive int

const (
	StatusUnset StatusPrimitive = iota
	StatusOffline
	StatusAvailable
	StatusUnavailable
	StatusInvisible
	StatusAway
	StatusExtendedAway
	StatusMobile
	StatusTune
	StatusMood
)

var statusPrimitiveNames = map[StatusPrimitive]string{
	StatusUnset:        "unset",
	StatusOffline:      "offline",
	StatusAvailable:    "available",
	StatusUnavailable:  "unavailable",
	StatusInvisible:    "invisible",
	StatusAway:         "away",
	StatusExtendedAway: "extended_away",
	StatusMobile:       "mobile",
	StatusTune:         "tune",
	StatusMood:         "mood",
}

func (p StatusPrimitive) String() string {
	if name, ok := statusPrimitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("StatusPrimitive(%d)", int(p))
}

// StatusType is one status a protocol can put an account in.
type StatusType struct {
	ID           string
	Name         string
	Primitive    StatusPrimitive
	Saveable     bool
	UserSettable bool
	Independent  bool
}

// Status is an account's current presence.
type Status struct {
	ID      string
	Message string
}

// MessageFlags qualify an outgoing or incoming message.
type MessageFlags uint32

const (
	MessageSend MessageFlags = 1 << iota
	MessageReceive
	MessageSystem
	MessageAutoResp
	MessageActiveOnly
	MessageNick
	MessageNoLog
	MessageWhisper
	MessageError
	MessageDelayed
	MessageRaw
	MessageImages
	MessageNotify
	MessageNoLinkify
	MessageInvisible
)

// TypingState is sent with typing notifications.
type TypingState int

const (
	NotTyping TypingState = iota
	Typing
	Typed
)

// Buddy is a contact as seen by protocol hooks.
type Buddy struct {
	Name    string
	Alias   string
	Group   string
	Account *Account
}

// TooltipEntry is one label/value line of a buddy tooltip.
type TooltipEntry struct {
	Label string
	Value string
}

// ChatEntry describes one field needed to join a chat.
type ChatEntry struct {
	Label      string
	Identifier string
	Required   bool
	IsInt      bool
	Min        int
	Max        int
	Secret     bool
}

// RoomType distinguishes joinable rooms from categories.
type RoomType int

const (
	RoomTypeRoom RoomType = iota
	RoomTypeCategory
)

// Room is one entry of a room list.
type Room struct {
	Type     RoomType
	Name     string
	Parent   *Room
	Fields   map[string]string
	Expanded bool
}

// Roomlist is an in-progress or completed listing of server rooms.
type Roomlist struct {
	Account    *Account
	Rooms      []*Room
	InProgress bool
	ProtoData  any
}

// XferType is the direction of a file transfer.
type XferType int

const (
	XferUnknown XferType = iota
	XferSend
	XferReceive
)

// Xfer is a file transfer.
type Xfer struct {
	ID        string
	Account   *Account
	Type      XferType
	Who       string
	Filename  string
	Size      int64
	ProtoData any
}

// Whiteboard is a shared drawing session.
type Whiteboard struct {
	ID        string
	Account   *Account
	Who       string
	Session   int
	State     int
	ProtoData any
}

// MediaCaps are the media session kinds a peer supports.
type MediaCaps uint32

const (
	MediaCapsNone            MediaCaps = 0
	MediaCapsAudio           MediaCaps = 1 << 0
	MediaCapsAudioSingle     MediaCaps = 1 << 1
	MediaCapsVideo           MediaCaps = 1 << 2
	MediaCapsVideoSingle     MediaCaps = 1 << 3
	MediaCapsAudioVideo      MediaCaps = 1 << 4
	MediaCapsModifySession   MediaCaps = 1 << 5
	MediaCapsChangeDirection MediaCaps = 1 << 6
)

// AttentionType is a kind of "buzz" a protocol supports.
type AttentionType struct {
	Name         string
	IncomingDesc string
	OutgoingDesc string
	IconName     string
}

// Action is a protocol menu entry.
type Action struct {
	Label    string
	Callback func(conn *Connection)
}
