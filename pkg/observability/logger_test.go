package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json",
			format: "json",
			check: func(t *testing.T, out string) {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &entry))
				assert.Equal(t, "hello", entry["msg"])
				assert.Equal(t, "core-lua", entry["plugin"])
			},
		},
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "msg=hello")
				assert.Contains(t, out, "plugin=core-lua")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewLogger(logrus.InfoLevel, tt.format, &buf)
			log.Debug("hidden")
			log.WithField("plugin", "core-lua").Info("hello")
			assert.NotContains(t, buf.String(), "hidden")
			tt.check(t, buf.String())
		})
	}
}

func TestFromContext(t *testing.T) {
	log := NewLogger(logrus.InfoLevel, "json", &bytes.Buffer{})

	entry := FromContext(context.Background(), log)
	assert.Empty(t, entry.Data)

	ctx := WithRequestID(context.Background(), "req-1")
	entry = FromContext(ctx, log)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.NotContains(t, entry.Data, "trace_id")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	entry = FromContext(ctx, log)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry.Data["span_id"])
}
