package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo runs fn on its own goroutine under a deadline of timeout. An error
// or panic from fn is logged against task instead of crashing the process.
// The returned channel is closed once fn has returned.
func SafeGo(parent context.Context, log logrus.FieldLogger, timeout time.Duration, task string, fn func(context.Context) error) <-chan struct{} {
	if log == nil {
		log = logrus.StandardLogger()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithField("task", task).Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithField("task", task).WithError(err).Warn("Background task failed")
		}
	}()
	return done
}
