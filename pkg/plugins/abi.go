package plugins

import "fmt"

// decodeInfo turns whatever an entry point described into the current
// metadata shape. A non-empty diagnostic means the module may be shown but
// never run. A non-nil error means nothing usable was described.
func decodeInfo(raw any) (*Info, string, error) {
	switch meta := raw.(type) {
	case *Info:
		if meta == nil {
			return nil, "", fmt.Errorf("%w: no metadata", ErrUnrecognizedMagic)
		}
		switch {
		case meta.Magic == Magic:
			return meta, "", nil
		case isLegacyMagic(meta.Magic):
			// current shape with a legacy tag; describe it but do not run it
			return meta, magicMismatch(meta.Magic), nil
		}
		return nil, "", fmt.Errorf("%w: %d", ErrUnrecognizedMagic, meta.Magic)

	case *LegacyInfo:
		if meta == nil {
			return nil, "", fmt.Errorf("%w: no metadata", ErrUnrecognizedMagic)
		}
		if !isLegacyMagic(meta.Magic) {
			return nil, "", fmt.Errorf("%w: %d", ErrUnrecognizedMagic, meta.Magic)
		}
		return upgradeLegacy(meta), magicMismatch(meta.Magic), nil

	case nil:
		return nil, "", fmt.Errorf("%w: no metadata", ErrUnrecognizedMagic)
	}
	return nil, "", fmt.Errorf("%w: unsupported metadata type %T", ErrUnrecognizedMagic, raw)
}

func isLegacyMagic(m int) bool {
	return m >= LegacyMagicMin && m <= LegacyMagicMax
}

func magicMismatch(m int) string {
	return fmt.Sprintf("Plugin magic mismatch %d (need %d)", m, Magic)
}

// upgradeLegacy copies a legacy block into the current shape. Fields the old
// layout lacks keep their zero or default value.
func upgradeLegacy(l *LegacyInfo) *Info {
	deps := make([]string, len(l.Dependencies))
	copy(deps, l.Dependencies)
	return &Info{
		Magic:        l.Magic,
		MajorVersion: l.MajorVersion,
		MinorVersion: l.MinorVersion,
		Type:         l.Type,
		Dependencies: deps,
		Priority:     PriorityDefault,
		ID:           l.ID,
		Name:         l.Name,
		Version:      l.Version,
		Summary:      l.Summary,
		Description:  l.Description,
		Author:       l.Author,
		Load:         l.Load,
		Unload:       l.Unload,
		Destroy:      l.Destroy,
		UIInfo:       l.UIInfo,
		ExtraInfo:    l.ExtraInfo,
	}
}

// abiValid reports whether the metadata passed the magic and major version
// checks, so its hooks and extra info may be interpreted.
func abiValid(info *Info) bool {
	return info != nil && info.Magic == Magic && info.MajorVersion == HostMajorVersion
}

// compatibility returns the reason info cannot run on this host, or "".
func compatibility(info *Info, hostUI string) string {
	if info.MajorVersion != HostMajorVersion || info.MinorVersion > HostMinorVersion {
		return fmt.Sprintf("ABI version mismatch %d.%d.x (need %d.%d.x)",
			info.MajorVersion, info.MinorVersion, HostMajorVersion, HostMinorVersion)
	}
	if info.UIRequirement != "" && info.UIRequirement != hostUI {
		return fmt.Sprintf("You are using %s, but this plugin requires %s.", hostUI, info.UIRequirement)
	}
	return ""
}
