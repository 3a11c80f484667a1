//go:build !linux && !darwin

package plugins

import (
	"errors"
	"runtime"
)

var errNativeUnsupported = errors.New("native plugins are not supported on " + runtime.GOOS)

type unsupportedOpener struct{}

func newPlatformOpener() Opener {
	return unsupportedOpener{}
}

func (unsupportedOpener) Open(string) (Handle, error)     { return nil, errNativeUnsupported }
func (unsupportedOpener) OpenLazy(string) (Handle, error) { return nil, errNativeUnsupported }
