package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInfo(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantDiag  string
		wantErr   bool
		wantMagic int
	}{
		{name: "current", raw: &Info{Magic: Magic}, wantMagic: Magic},
		{name: "legacy tag on current shape", raw: &Info{Magic: 4}, wantDiag: "Plugin magic mismatch 4 (need 5)", wantMagic: 4},
		{name: "legacy shape", raw: &LegacyInfo{Magic: 3, ID: "old"}, wantDiag: "Plugin magic mismatch 3 (need 5)", wantMagic: 3},
		{name: "legacy shape with current magic", raw: &LegacyInfo{Magic: Magic}, wantErr: true},
		{name: "unknown magic", raw: &Info{Magic: 42}, wantErr: true},
		{name: "too old", raw: &LegacyInfo{Magic: 2}, wantErr: true},
		{name: "nothing described", raw: nil, wantErr: true},
		{name: "typed nil", raw: (*Info)(nil), wantErr: true},
		{name: "foreign type", raw: "metadata", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, diag, err := decodeInfo(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognizedMagic)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiag, diag)
			assert.Equal(t, tt.wantMagic, info.Magic)
		})
	}
}

func TestUpgradeLegacy(t *testing.T) {
	loadCalled := false
	legacy := &LegacyInfo{
		Magic:        3,
		MajorVersion: 1,
		MinorVersion: 2,
		Type:         TypeProtocol,
		Dependencies: []string{"core"},
		ID:           "prpl-old",
		Name:         "Old",
		Summary:      "An old protocol",
		Load:         func(*Plugin) bool { loadCalled = true; return true },
	}

	info := upgradeLegacy(legacy)
	assert.Equal(t, "prpl-old", info.ID)
	assert.Equal(t, TypeProtocol, info.Type)
	assert.Equal(t, []string{"core"}, info.Dependencies)
	assert.Equal(t, PriorityDefault, info.Priority)
	assert.Empty(t, info.UIRequirement)
	assert.Empty(t, info.Homepage)
	assert.Nil(t, info.Actions)
	assert.Nil(t, info.PrefsInfo)
	assert.NotNil(t, info.Load)
	assert.False(t, loadCalled)

	// the copy does not alias the legacy slice
	legacy.Dependencies[0] = "changed"
	assert.Equal(t, "core", info.Dependencies[0])
}

func TestCompatibility(t *testing.T) {
	tests := []struct {
		name string
		info Info
		ui   string
		want string
	}{
		{name: "exact", info: Info{MajorVersion: HostMajorVersion, MinorVersion: HostMinorVersion}},
		{name: "older minor", info: Info{MajorVersion: HostMajorVersion, MinorVersion: 0}},
		{name: "newer minor", info: Info{MajorVersion: HostMajorVersion, MinorVersion: HostMinorVersion + 1},
			want: "ABI version mismatch 2.15.x (need 2.14.x)"},
		{name: "newer major", info: Info{MajorVersion: HostMajorVersion + 1},
			want: "ABI version mismatch 3.0.x (need 2.14.x)"},
		{name: "older major", info: Info{MajorVersion: 1, MinorVersion: 9},
			want: "ABI version mismatch 1.9.x (need 2.14.x)"},
		{name: "ui match", info: Info{MajorVersion: HostMajorVersion, UIRequirement: "headless"}, ui: "headless"},
		{name: "ui mismatch", info: Info{MajorVersion: HostMajorVersion, UIRequirement: "gtk"}, ui: "headless",
			want: "You are using headless, but this plugin requires gtk."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compatibility(&tt.info, tt.ui))
		})
	}
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"/usr/lib/conduit/xmpp.so":     "xmpp",
		"/opt/plugins/xmpp.dylib":      "xmpp",
		`xmpp.dll`:                     "xmpp",
		"/usr/share/conduit/hello.lua": "hello.lua",
		"noext":                        "noext",
		"":                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Basename(in), in)
	}
}

func TestAsEntry(t *testing.T) {
	fn := func(*Plugin) bool { return true }
	var named EntryFunc = fn

	got, ok := asEntry(fn)
	assert.True(t, ok)
	assert.NotNil(t, got)

	_, ok = asEntry(named)
	assert.True(t, ok)
	_, ok = asEntry(&fn)
	assert.True(t, ok)
	_, ok = asEntry(&named)
	assert.True(t, ok)

	var nilFn func(*Plugin) bool
	_, ok = asEntry(&nilFn)
	assert.False(t, ok)
	_, ok = asEntry(func() bool { return true })
	assert.False(t, ok)
	_, ok = asEntry(uintptr(1))
	assert.False(t, ok)
}
