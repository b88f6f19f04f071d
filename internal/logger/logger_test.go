package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "json")

	ctx := WithRequestID(context.Background(), "req-1")
	InfoContext(ctx, "hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "v", line["k"])
	assert.Equal(t, "", requestID(context.Background()))
}

func TestHTTPRequestLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "json")

	HTTPRequest(context.Background(), "GET", "/api/health", 503, 5*time.Millisecond)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.EqualValues(t, 503, line["status"])
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn", "json")

	Info("dropped")
	assert.Zero(t, buf.Len())

	Get().Warn("kept")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info", "json")

	StdLogger("scheduler", slog.LevelInfo).Printf("start job %s", "mark-overdue")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scheduler", line["service"])
	assert.Equal(t, "start job mark-overdue", line["msg"])
}
