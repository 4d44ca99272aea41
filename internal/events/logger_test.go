package events_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediavault-app/mediavault/internal/events"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.WarnLevel, "text", &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "text", &buf)

	logger.WithField("resource_id", "res-1").
		WithField("variant", "thumbnail").
		Info("issued")

	out := buf.String()
	assert.Contains(t, out, "resource_id=res-1")
	assert.Contains(t, out, "variant=thumbnail")
}

func TestLoggerRedactsSecrets(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		secret string
	}{
		{"passphrase", "passphrase", "hunter2"},
		{"derived key", "key", "deadbeefcafe"},
		{"capability signature", "signature", "a1b2c3d4"},
		{"session token", "token", "tok-9999"},
		{"session id", "session_id", "bearer-5555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, format := range []string{"text", "json"} {
				var buf bytes.Buffer
				logger := events.NewTestLogger(events.DebugLevel, format, &buf)

				logger.WithField(tt.field, tt.secret).Info("event")

				out := buf.String()
				assert.NotContains(t, out, tt.secret)
				assert.Contains(t, out, "[redacted]")
			}
		})
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	logger.WithField("component", "issuer").Info("started")

	out := buf.String()
	assert.Contains(t, out, `"msg":"started"`)
	assert.Contains(t, out, `"component":"issuer"`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestLoggerJSONEscaping(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	logger.Info("line\nbreak \"quoted\"")

	out := buf.String()
	assert.Contains(t, out, `line\nbreak \"quoted\"`)
}
