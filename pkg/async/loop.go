package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// ErrLoopStopped is returned when work is submitted to a loop that has exited.
var ErrLoopStopped = errors.New("control loop stopped")

// Loop serialises work onto a single goroutine.
type Loop struct {
	work    chan func()
	stopped chan struct{}
	log     *logrus.Logger
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(depth int, log *logrus.Logger) *Loop {
	if depth <= 0 {
		depth = 1
	}
	if log == nil {
		log = logrus.New()
	}
	return &Loop{
		work:    make(chan func(), depth),
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Run executes posted work until ctx is cancelled. It must be called exactly
// once; the calling goroutine becomes the control goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.work:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("panic on control loop: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Post queues fn without waiting for it. It blocks while the queue is full
// and returns ErrLoopStopped once the loop has exited.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}

	select {
	case l.work <- fn:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	}
}

// Call runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic on control loop: %v", r)
			}
		}()
		done <- fn()
	}

	select {
	case l.work <- wrapped:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-l.stopped:
		// the loop may have run fn just before stopping
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}
