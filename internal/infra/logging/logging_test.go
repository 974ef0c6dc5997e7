package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

func TestParseFilter(t *testing.T) {
	t.Parallel()

	got := logging.ParseFilter("svc:warn, svc.imagesvc:debug,broken,repo:nonsense")

	assert.Equal(t, map[string]logging.Level{
		"svc":          logging.LevelWarn,
		"svc.imagesvc": logging.LevelDebug,
		"repo":         logging.LevelDebug,
	}, got)
}

func TestFilterHandler(t *testing.T) {
	t.Parallel()

	levels := logging.ParseFilter("svc:warn,svc.imagesvc:debug")

	tests := []struct {
		name   string
		logger string
		level  slog.Level
		want   bool
	}{
		{name: "default level passes info", logger: "repo.image", level: slog.LevelInfo, want: true},
		{name: "default level drops debug", logger: "repo.image", level: slog.LevelDebug, want: false},
		{name: "prefix override drops info", logger: "svc.commentsvc", level: slog.LevelInfo, want: false},
		{name: "prefix override passes warn", logger: "svc.commentsvc", level: slog.LevelWarn, want: true},
		{name: "specific override wins", logger: "svc.imagesvc", level: slog.LevelDebug, want: true},
		{name: "nested name inherits", logger: "svc.imagesvc.http", level: slog.LevelDebug, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := logging.NewFilterHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.Level(-8)}),
				slog.LevelInfo, levels)
			logger := slog.New(handler).With(logging.LoggerKey, tt.logger)

			logger.Log(context.Background(), tt.level, "message")

			assert.Equal(t, tt.want, buf.Len() > 0)
		})
	}
}

func TestRequestHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(logging.NewRequestHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := context_.WithTraceID(context.Background(), "abc")
	ctx = context_.WithIdentity(ctx, "alice")

	logger.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, map[string]any{"id": "abc", "user": "alice"}, record["req"])

	buf.Reset()
	logger.InfoContext(context.Background(), "bare")

	record = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "req")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, logging.LevelDebug, logging.ParseLevel(" DEBUG ", logging.LevelInfo))
	assert.Equal(t, logging.LevelWarn, logging.ParseLevel("warn", logging.LevelInfo))
	assert.Equal(t, logging.LevelInfo, logging.ParseLevel("chatty", logging.LevelInfo))
}

func TestNopLoggerDiscards(t *testing.T) {
	t.Parallel()

	logger := logging.NewNopLogger()

	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
