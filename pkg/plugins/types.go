package plugins

import "fmt"

// Host ABI markers checked against every module's metadata.
const (
	// Magic identifies the current metadata layout.
	Magic = 5
	// LegacyMagicMin and LegacyMagicMax bound the older layouts that are
	// upgraded and described but never executed.
	LegacyMagicMin = 3
	LegacyMagicMax = 4

	HostMajorVersion = 2
	HostMinorVersion = 14

	// EntrySymbol is the symbol every native module exports.
	EntrySymbol = "PluginInit"
)

// EntryFunc is the module entry point. It hands its metadata to the
// descriptor with Describe and reports whether probing may continue.
type EntryFunc func(p *Plugin) bool

// Type is the kind of module.
type Type int

const (
	TypeUnknown Type = iota
	TypeStandard
	TypeLoader
	TypeProtocol
)

func (t Type) String() string {
	switch t {
	case TypeStandard:
		return "standard"
	case TypeLoader:
		return "loader"
	case TypeProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Priority orders modules that compete for the same role, such as two
// loaders claiming one extension.
type Priority int

const (
	PriorityLowest  Priority = -9999
	PriorityDefault Priority = 0
	PriorityHighest Priority = 9999
)

// Flags are module behaviour bits.
type Flags uint32

const (
	// FlagInvisible hides the module from user-facing lists.
	FlagInvisible Flags = 1 << iota
)

// Info is the current metadata block.
type Info struct {
	Magic        int
	MajorVersion int
	MinorVersion int
	Type         Type
	// UIRequirement names the front-end this module needs, if any.
	UIRequirement string
	Flags         Flags
	// Dependencies are the ids of modules that must be loaded first.
	Dependencies []string
	Priority     Priority

	ID          string
	Name        string
	Version     string
	Summary     string
	Description string
	Author      string
	Homepage    string

	Load    func(p *Plugin) bool
	Unload  func(p *Plugin) bool
	Destroy func(p *Plugin)

	UIInfo any
	// ExtraInfo is a *LoaderInfo for loaders and a *protocol.Protocol for
	// protocols.
	ExtraInfo any
	// PrefsInfo is honoured from MinorVersion 3.
	PrefsInfo any
	// Actions is honoured from MinorVersion 4.
	Actions func(p *Plugin) []Action
}

// LegacyInfo is the metadata block of magic 3 and 4 modules.
type LegacyInfo struct {
	Magic        int
	MajorVersion int
	MinorVersion int
	Type         Type
	Dependencies []string

	ID          string
	Name        string
	Version     string
	Summary     string
	Description string
	Author      string

	Load    func(p *Plugin) bool
	Unload  func(p *Plugin) bool
	Destroy func(p *Plugin)

	UIInfo    any
	ExtraInfo any
}

// LoaderInfo is the ExtraInfo of a loader module.
type LoaderInfo struct {
	// Exts are the file extensions the loader claims, without the dot.
	Exts []string

	Probe   func(p *Plugin) bool
	Load    func(p *Plugin) bool
	Unload  func(p *Plugin) bool
	Destroy func(p *Plugin)
}

// Claims reports whether the loader handles ext.
func (li *LoaderInfo) Claims(ext string) bool {
	if li == nil {
		return false
	}
	ext = normalizeExt(ext)
	for _, e := range li.Exts {
		if normalizeExt(e) == ext {
			return true
		}
	}
	return false
}

// Action is a user-invocable module action.
type Action struct {
	Label    string
	Callback func(p *Plugin)
}

func (i *Info) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s (%s, abi %d.%d)", i.ID, i.Version, i.Type, i.MajorVersion, i.MinorVersion)
}
