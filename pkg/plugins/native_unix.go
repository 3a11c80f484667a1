//go:build linux || darwin

package plugins

import (
	"fmt"
	"plugin"

	"github.com/ebitengine/purego"
)

type unixOpener struct{}

func newPlatformOpener() Opener {
	return unixOpener{}
}

// Open loads a Go plugin.
func (unixOpener) Open(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goPluginHandle{p: p}, nil
}

// OpenLazy opens the library with the system loader and lazy binding. The
// resulting handle can confirm that symbols exist but cannot call Go code.
func (unixOpener) OpenLazy(path string) (Handle, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &dlHandle{lib: lib}, nil
}

type goPluginHandle struct {
	p *plugin.Plugin
}

func (h *goPluginHandle) Lookup(symbol string) (any, error) {
	sym, err := h.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close is a no-op; Go plugins cannot be unloaded.
func (h *goPluginHandle) Close() error { return nil }

type dlHandle struct {
	lib uintptr
}

func (h *dlHandle) Lookup(symbol string) (any, error) {
	addr, err := purego.Dlsym(h.lib, symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol %s: %w", symbol, err)
	}
	return addr, nil
}

func (h *dlHandle) Close() error {
	if h.lib == 0 {
		return nil
	}
	err := purego.Dlclose(h.lib)
	h.lib = 0
	return err
}
