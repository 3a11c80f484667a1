package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger is the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Close() error
}

// stamp fills the id and timestamp when the caller left them empty.
func stamp(e *Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = EventStatusSuccess
	}
}

// LogrusLogger writes events as structured log lines.
type LogrusLogger struct {
	log logrus.FieldLogger
}

// NewLogrusLogger creates a logger writing to log at info level.
func NewLogrusLogger(log logrus.FieldLogger) *LogrusLogger {
	return &LogrusLogger{log: log}
}

// Log writes the event.
func (l *LogrusLogger) Log(ctx context.Context, e *Event) error {
	stamp(e)
	fields := logrus.Fields{
		"audit_id": e.ID,
		"event":    e.Type,
		"status":   e.Status,
	}
	addField(fields, "plugin", e.PluginID)
	addField(fields, "account", e.Username)
	addField(fields, "protocol", e.ProtocolID)
	addField(fields, "request_id", e.RequestID)
	if e.StatusCode != 0 {
		fields["status_code"] = e.StatusCode
		fields["path"] = e.Path
	}
	l.log.WithFields(fields).Info(e.Message)
	return nil
}

// Close is a no-op.
func (l *LogrusLogger) Close() error { return nil }

func addField(fields logrus.Fields, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Log(context.Context, *Event) error { return nil }
func (NopLogger) Close() error                      { return nil }
