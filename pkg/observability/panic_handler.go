package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with its stack. It must be
// deferred directly:
//
//	defer observability.RecoverPanic(log, "watcher")
//
// The panic is not re-raised.
func RecoverPanic(log logrus.FieldLogger, where string) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": where,
		}).Error("PANIC recovered")
	}
}

// MustRecover converts a recovered value into an error, or nil.
//
//	defer func() { err = observability.MustRecover(recover()) }()
func MustRecover(r any) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
