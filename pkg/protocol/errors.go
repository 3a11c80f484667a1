package protocol

import "errors"

var (
	// ErrNotSupported is returned by dispatch functions whose capability is absent.
	ErrNotSupported = errors.New("operation not supported by protocol")
	// ErrInvalidProtocol is returned when a protocol is missing its id or base table.
	ErrInvalidProtocol = errors.New("invalid protocol")
	// ErrAlreadyRegistered is returned when registering a duplicate protocol id.
	ErrAlreadyRegistered = errors.New("protocol already registered")
	// ErrNotRegistered is returned when removing an unknown protocol.
	ErrNotRegistered = errors.New("protocol not registered")
	// ErrReleased is returned when using a protocol after Release.
	ErrReleased = errors.New("protocol released")
)
