package protocol

import (
	"fmt"
	"sort"
)

// DefaultObserver is told whenever a dispatch call falls back to its default
// because the protocol lacks the capability.
type DefaultObserver func(protocolID string, c Capability)

// Protocol aggregates a protocol's declarative metadata and capability tables.
type Protocol struct {
	id      string
	name    string
	options Options
	splits  []UserSplit
	acctOpt []*AccountOption
	icon    *IconSpec

	base      Table[Base]
	client    Table[Client]
	server    Table[Server]
	im        Table[IM]
	chat      Table[Chat]
	privacy   Table[Privacy]
	xfer      Table[XferOps]
	roomlist  Table[RoomlistOps]
	attention Table[Attention]
	media     Table[Media]
	factory   Table[Factory]

	onDefault DefaultObserver
	released  bool
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithOptions sets the protocol's option flags.
func WithOptions(o Options) Option {
	return func(p *Protocol) { p.options = o }
}

// WithUserSplits appends username splits in order.
func WithUserSplits(splits ...UserSplit) Option {
	return func(p *Protocol) { p.splits = append(p.splits, splits...) }
}

// WithAccountOptions appends account options in order.
func WithAccountOptions(opts ...*AccountOption) Option {
	return func(p *Protocol) { p.acctOpt = append(p.acctOpt, opts...) }
}

// WithIconSpec sets the buddy icon spec.
func WithIconSpec(spec IconSpec) Option {
	return func(p *Protocol) { p.icon = &spec }
}

func WithClient(impl Client) Option        { return func(p *Protocol) { p.client.set(impl) } }
func WithServer(impl Server) Option        { return func(p *Protocol) { p.server.set(impl) } }
func WithIM(impl IM) Option                { return func(p *Protocol) { p.im.set(impl) } }
func WithChat(impl Chat) Option            { return func(p *Protocol) { p.chat.set(impl) } }
func WithPrivacy(impl Privacy) Option      { return func(p *Protocol) { p.privacy.set(impl) } }
func WithXfer(impl XferOps) Option         { return func(p *Protocol) { p.xfer.set(impl) } }
func WithRoomlist(impl RoomlistOps) Option { return func(p *Protocol) { p.roomlist.set(impl) } }
func WithAttention(impl Attention) Option  { return func(p *Protocol) { p.attention.set(impl) } }
func WithMedia(impl Media) Option          { return func(p *Protocol) { p.media.set(impl) } }
func WithFactory(impl Factory) Option      { return func(p *Protocol) { p.factory.set(impl) } }

// New creates a protocol. id and base are mandatory.
func New(id, name string, base Base, opts ...Option) (*Protocol, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidProtocol)
	}
	if base == nil {
		return nil, fmt.Errorf("%w: %s has no base table", ErrInvalidProtocol, id)
	}
	if name == "" {
		name = id
	}

	p := &Protocol{id: id, name: name}
	p.base.set(base)
	for _, opt := range opts {
		opt(p)
	}
	p.bindTables()
	return p, nil
}

func (p *Protocol) bindTables() {
	p.base.cap, p.base.owner = CapBase, p
	p.client.cap, p.client.owner = CapClient, p
	p.server.cap, p.server.owner = CapServer, p
	p.im.cap, p.im.owner = CapIM, p
	p.chat.cap, p.chat.owner = CapChat, p
	p.privacy.cap, p.privacy.owner = CapPrivacy, p
	p.xfer.cap, p.xfer.owner = CapXfer, p
	p.roomlist.cap, p.roomlist.owner = CapRoomlist, p
	p.attention.cap, p.attention.owner = CapAttention, p
	p.media.cap, p.media.owner = CapMedia, p
	p.factory.cap, p.factory.owner = CapFactory, p
}

// ID returns the stable protocol id.
func (p *Protocol) ID() string { return p.id }

// Name returns the display name.
func (p *Protocol) Name() string { return p.name }

// Options returns the protocol's option flags.
func (p *Protocol) Options() Options { return p.options }

// UserSplits returns the username splits in declaration order.
func (p *Protocol) UserSplits() []UserSplit {
	out := make([]UserSplit, len(p.splits))
	copy(out, p.splits)
	return out
}

// AccountOptions returns the account options in declaration order.
func (p *Protocol) AccountOptions() []*AccountOption {
	out := make([]*AccountOption, len(p.acctOpt))
	copy(out, p.acctOpt)
	return out
}

// AccountOption returns the option with the given preference name.
func (p *Protocol) AccountOption(prefName string) (*AccountOption, bool) {
	for _, o := range p.acctOpt {
		if o.PrefName == prefName {
			return o, true
		}
	}
	return nil, false
}

// IconSpec returns the icon spec, or nil when icons are unsupported.
func (p *Protocol) IconSpec() *IconSpec { return p.icon }

// Supports reports whether the capability table is present.
func (p *Protocol) Supports(c Capability) bool {
	if p == nil {
		return false
	}
	switch c {
	case CapBase:
		return p.base.Present()
	case CapClient:
		return p.client.Present()
	case CapServer:
		return p.server.Present()
	case CapIM:
		return p.im.Present()
	case CapChat:
		return p.chat.Present()
	case CapPrivacy:
		return p.privacy.Present()
	case CapXfer:
		return p.xfer.Present()
	case CapRoomlist:
		return p.roomlist.Present()
	case CapAttention:
		return p.attention.Present()
	case CapMedia:
		return p.media.Present()
	case CapFactory:
		return p.factory.Present()
	}
	return false
}

// Capabilities returns the present capability groups.
func (p *Protocol) Capabilities() []Capability {
	var caps []Capability
	for _, c := range Capabilities() {
		if p.Supports(c) {
			caps = append(caps, c)
		}
	}
	return caps
}

// Validate checks that the protocol has an id and a base table.
func (p *Protocol) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil protocol", ErrInvalidProtocol)
	}
	if p.released {
		return fmt.Errorf("%w: %s", ErrReleased, p.id)
	}
	if p.id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProtocol)
	}
	if !p.base.Present() {
		return fmt.Errorf("%w: %s has no base table", ErrInvalidProtocol, p.id)
	}
	return nil
}

// SetDefaultObserver installs fn to be told about dispatch fallbacks.
func (p *Protocol) SetDefaultObserver(fn DefaultObserver) {
	p.onDefault = fn
}

// Released reports whether Release has run.
func (p *Protocol) Released() bool { return p.released }

// Release drops all capability tables, username splits and account options.
// Further dispatch falls back to defaults. Release is idempotent.
func (p *Protocol) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	p.base.clear()
	p.client.clear()
	p.server.clear()
	p.im.clear()
	p.chat.clear()
	p.privacy.clear()
	p.xfer.clear()
	p.roomlist.clear()
	p.attention.clear()
	p.media.clear()
	p.factory.clear()
	p.splits = nil
	p.acctOpt = nil
	p.icon = nil
	p.onDefault = nil
}

// SortByName orders protocols by display name, then id.
func SortByName(protos []*Protocol) {
	sort.Slice(protos, func(i, j int) bool {
		if protos[i].name != protos[j].name {
			return protos[i].name < protos[j].name
		}
		return protos[i].id < protos[j].id
	})
}
