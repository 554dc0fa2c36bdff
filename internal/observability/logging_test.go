package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureGlobal(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GlobalLogger
	l, _, err := NewLogger(LogConfig{Level: level, Format: "json", Stdout: &buf, Location: time.UTC})
	require.NoError(t, err)
	GlobalLogger = l
	t.Cleanup(func() { GlobalLogger = prev })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_ContextValuesAndZone(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, err := NewLogger(LogConfig{
		Level:    "info",
		Format:   "json",
		Location: time.FixedZone("KST", 9*60*60),
		Stdout:   &buf,
	})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")
	l.InfoContext(ctx, "hello")
	l.DebugContext(ctx, "hidden")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "trace-1", lines[0]["trace_id"])
	assert.True(t, strings.HasSuffix(lines[0]["time"].(string), "+09:00"))
}

func TestNewLogger_FileSinks(t *testing.T) {
	dir := t.TempDir()
	appLog := filepath.Join(dir, "logs", "app.log")
	errLog := filepath.Join(dir, "logs", "error.log")

	var stdout bytes.Buffer
	l, closeFn, err := NewLogger(LogConfig{
		Level:     "info",
		Format:    "text",
		ToFile:    true,
		File:      appLog,
		ErrorFile: errLog,
		Stdout:    &stdout,
	})
	require.NoError(t, err)

	l.Info("board created")
	l.Error("query failed")
	require.NoError(t, closeFn())

	app, err := os.ReadFile(appLog)
	require.NoError(t, err)
	assert.Contains(t, string(app), "board created")
	assert.Contains(t, string(app), "query failed")

	errs, err := os.ReadFile(errLog)
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "board created")
	assert.Contains(t, string(errs), "query failed")

	assert.Contains(t, stdout.String(), "board created")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARNING").String())
	assert.Equal(t, "ERROR", ParseLevel("fatal").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}

func TestLogPerformance_Levels(t *testing.T) {
	buf := captureGlobal(t, "debug")

	LogPerformance(context.Background(), "fast", 10*time.Millisecond)
	LogPerformance(context.Background(), "slow", 2*time.Second)
	LogPerformance(context.Background(), "very_slow", 6*time.Second)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "10ms", lines[0]["duration"])
	assert.Equal(t, "INFO", lines[1]["level"])
	assert.Equal(t, "2.0s", lines[1]["duration"])
	assert.Equal(t, "WARN", lines[2]["level"])
}

func TestRepoLogger_LogError(t *testing.T) {
	buf := captureGlobal(t, "info")

	NewRepoLogger("board", "board").LogError(context.Background(), errors.New("boom"), "create", "1062")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "repository error", lines[0]["msg"])
	assert.Equal(t, "board", lines[0]["db"])
	assert.Equal(t, "create", lines[0]["operation"])
	assert.Equal(t, "1062", lines[0]["error_code"])
}

func TestRepoLogger_Disabled(t *testing.T) {
	buf := captureGlobal(t, "debug")
	prev := Config
	Config.EnableRepoLogging = false
	defer func() { Config = prev }()

	NewRepoLogger("board", "board").LogCreate(context.Background(), map[string]any{"id": 1})
	assert.Empty(t, buf.String())
}

func TestLogSecurity(t *testing.T) {
	buf := captureGlobal(t, "info")

	LogSecurity(context.Background(), "invalid_board_password", "board_id", 7)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "invalid_board_password", lines[0]["event"])
	assert.EqualValues(t, 7, lines[0]["board_id"])
}
