package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestSafeGo(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(context.Context) error
		wantLevel logrus.Level
		wantMsg   string
	}{
		{
			name: "success logs nothing",
			fn:   func(context.Context) error { return nil },
		},
		{
			name:      "error is logged",
			fn:        func(context.Context) error { return errors.New("disk full") },
			wantLevel: logrus.WarnLevel,
			wantMsg:   "Background task failed",
		},
		{
			name:      "panic is recovered",
			fn:        func(context.Context) error { panic("boom") },
			wantLevel: logrus.ErrorLevel,
			wantMsg:   "panic: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, hook := logtest.NewNullLogger()
			wait(t, SafeGo(context.Background(), log, time.Second, "rescan", tt.fn))

			if tt.wantMsg == "" {
				assert.Empty(t, hook.AllEntries())
				return
			}
			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Contains(t, entry.Message, tt.wantMsg)
			assert.Equal(t, "rescan", entry.Data["task"])
		})
	}
}

func TestSafeGo_Timeout(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	done := SafeGo(context.Background(), log, 20*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	wait(t, done)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), context.DeadlineExceeded)
}

func TestSafeGo_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	wait(t, SafeGo(ctx, nil, time.Minute, "cancelled", func(ctx context.Context) error {
		got = ctx.Err()
		return nil
	}))
	assert.ErrorIs(t, got, context.Canceled)
}
