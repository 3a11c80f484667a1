package plugins

import "fmt"

// Handle is an opened native module.
type Handle interface {
	// Lookup resolves an exported symbol.
	Lookup(symbol string) (any, error)
	Close() error
}

// Opener opens native modules. Open binds every symbol up front; OpenLazy
// only needs the library itself to be readable, so it succeeds for modules
// with unresolved symbols.
type Opener interface {
	Open(path string) (Handle, error)
	OpenLazy(path string) (Handle, error)
}

// NewOpener returns the opener for the running platform.
func NewOpener() Opener {
	return newPlatformOpener()
}

// asEntry converts a looked-up symbol into an entry point. Exported
// functions resolve to the function itself and exported variables to a
// pointer to it.
func asEntry(sym any) (EntryFunc, bool) {
	switch fn := sym.(type) {
	case func(*Plugin) bool:
		return fn, fn != nil
	case EntryFunc:
		return fn, fn != nil
	case *func(*Plugin) bool:
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	case *EntryFunc:
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	}
	return nil, false
}

// openNative opens path, falling back to lazy binding. A lazily opened
// handle is returned with lazy set and the first error.
func openNative(o Opener, path string) (h Handle, lazy bool, firstErr error, err error) {
	h, firstErr = o.Open(path)
	if firstErr == nil {
		return h, false, nil, nil
	}
	h, err = o.OpenLazy(path)
	if err != nil {
		return nil, false, firstErr, fmt.Errorf("%w: %s: %v", ErrOpen, path, firstErr)
	}
	return h, true, firstErr, nil
}
