package audit

import (
	"context"
	"errors"
)

// MultiLogger logs to several audit loggers in order
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a new multi-logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log hands the event to every logger. One failing logger does not stop
// the others.
func (m *MultiLogger) Log(ctx context.Context, e *Event) error {
	stamp(e)
	var errs []error
	for _, l := range m.loggers {
		if err := l.Log(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every logger
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Read delegates to the first logger that can read events back.
func (m *MultiLogger) Read(f Filter) ([]*Event, error) {
	for _, l := range m.loggers {
		if r, ok := l.(Reader); ok {
			return r.Read(f)
		}
	}
	return nil, ErrNotReadable
}
