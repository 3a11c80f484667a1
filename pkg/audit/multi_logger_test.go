package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLogger struct {
	events []*Event
	err    error
	closed bool
}

func (m *memLogger) Log(_ context.Context, e *Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memLogger) Close() error {
	m.closed = true
	return nil
}

func TestMultiLogger(t *testing.T) {
	failing := &memLogger{err: errors.New("disk full")}
	ok := &memLogger{}
	m := NewMultiLogger(failing, ok)

	err := m.Log(context.Background(), &Event{Type: EventTypePluginLoad})
	assert.ErrorContains(t, err, "disk full")
	require.Len(t, ok.events, 1, "a failing logger does not stop the rest")
	assert.NotEmpty(t, ok.events[0].ID)

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)

	_, err = m.Read(Filter{})
	assert.ErrorIs(t, err, ErrNotReadable)
}

func TestMultiLogger_ReadsFromFileLogger(t *testing.T) {
	fl := newFileLogger(t, FileLoggerConfig{})
	m := NewMultiLogger(&memLogger{}, fl)

	require.NoError(t, m.Log(context.Background(), &Event{Type: EventTypePluginUnload, PluginID: "x"}))
	events, err := m.Read(Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].PluginID)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	l := NewLogrusLogger(log)
	require.NoError(t, l.Log(context.Background(), &Event{
		Type:     EventTypePluginLoad,
		PluginID: "core-loopback",
		Message:  "Loaded core-loopback",
	}))

	out := buf.String()
	assert.Contains(t, out, `"event":"plugin.load"`)
	assert.Contains(t, out, `"plugin":"core-loopback"`)
	assert.NotContains(t, out, `"account"`)
}
