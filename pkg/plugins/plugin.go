package plugins

import (
	"path/filepath"
	"strings"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

// Native module suffixes stripped when computing a module's identity.
var nativeSuffixes = []string{".so", ".dylib", ".dll"}

// Plugin describes one discovered module.
type Plugin struct {
	path   string
	native bool
	static bool
	handle Handle
	lazy   bool
	// entry is run again to rebuild a released protocol object.
	entry EntryFunc

	raw      any
	info     *Info
	abiValid bool

	loaded     bool
	unloadable bool
	err        string
	destroyed  bool

	// loader is the loader module that probed a delegated module.
	loader *Plugin
	data   any
	ipc    map[string]*Command
}

func newPlugin(path string, native bool) *Plugin {
	return &Plugin{path: path, native: native}
}

// Describe hands the module's metadata to the descriptor. Entry points and
// loader probes call it with an *Info, or a *LegacyInfo for old modules.
func (p *Plugin) Describe(meta any) {
	p.raw = meta
}

// ID returns the module id, or its basename when no metadata was decoded.
func (p *Plugin) ID() string {
	if p.info != nil && p.info.ID != "" {
		return p.info.ID
	}
	return Basename(p.path)
}

// Name returns the display name, falling back to the id.
func (p *Plugin) Name() string {
	if p.info != nil && p.info.Name != "" {
		return p.info.Name
	}
	return p.ID()
}

// Path returns the module file, or "" for static modules.
func (p *Plugin) Path() string { return p.path }

// IsNative reports whether the module is machine code opened directly
// rather than handed to a loader module.
func (p *Plugin) IsNative() bool { return p.native }

// IsStatic reports whether the module was registered in-process.
func (p *Plugin) IsStatic() bool { return p.static }

func (p *Plugin) IsLoaded() bool { return p.loaded }

// IsUnloadable reports whether the module was found unusable. Unloadable
// modules stay known so the reason can be shown.
func (p *Plugin) IsUnloadable() bool { return p.unloadable }

// Error returns the reason the module is unloadable, or the last hook
// failure.
func (p *Plugin) Error() string { return p.err }

// SetError lets a module report why its load hook failed.
func (p *Plugin) SetError(msg string) { p.err = msg }

// Info returns the decoded metadata. It may be nil for modules that were
// opened lazily.
func (p *Plugin) Info() *Info { return p.info }

// Type returns the module type.
func (p *Plugin) Type() Type {
	if p.info == nil {
		return TypeUnknown
	}
	return p.info.Type
}

// Loader returns the loader module of a delegated module.
func (p *Plugin) Loader() *Plugin { return p.loader }

// Data returns loader-private state attached to a delegated module.
func (p *Plugin) Data() any { return p.data }

// SetData attaches loader-private state.
func (p *Plugin) SetData(v any) { p.data = v }

// LoaderInfo returns the loader extra info of a loader module.
func (p *Plugin) LoaderInfo() *LoaderInfo {
	if p.info == nil || p.info.Type != TypeLoader {
		return nil
	}
	li, _ := p.info.ExtraInfo.(*LoaderInfo)
	return li
}

// Protocol returns the protocol object of a protocol module.
func (p *Plugin) Protocol() *protocol.Protocol {
	if p.info == nil || p.info.Type != TypeProtocol {
		return nil
	}
	proto, _ := p.info.ExtraInfo.(*protocol.Protocol)
	return proto
}

// PrefsInfo returns the preferences frame for metadata from minor
// version 3 on.
func (p *Plugin) PrefsInfo() any {
	if p.info == nil || p.info.MinorVersion < 3 {
		return nil
	}
	return p.info.PrefsInfo
}

// Invisible reports whether the module asked to be hidden.
func (p *Plugin) Invisible() bool {
	return p.info != nil && p.info.Flags&FlagInvisible != 0
}

func (p *Plugin) markUnloadable(msg string) {
	p.unloadable = true
	if p.err == "" {
		p.err = msg
	}
}

// key identifies the descriptor in the dependency graph.
func (p *Plugin) key() string {
	if p.path != "" {
		return p.path
	}
	return "static:" + p.ID()
}

// Basename returns a module's identity: the file name without directory
// and without a native library suffix.
func Basename(path string) string {
	base := filepath.Base(path)
	if path == "" {
		return ""
	}
	for _, suffix := range nativeSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// IsNativePath reports whether path names a native library.
func IsNativePath(path string) bool {
	for _, suffix := range nativeSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// hasExtension reports whether path ends in .ext.
func hasExtension(path, ext string) bool {
	ext = normalizeExt(ext)
	if ext == "" {
		return false
	}
	return normalizeExt(filepath.Ext(path)) == ext
}
