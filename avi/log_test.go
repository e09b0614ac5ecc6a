package avi

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerSelectsJSONHandler(t *testing.T) {
	log := NewLogger(Config{LogLevel: "debug", LogFormat: "json"})
	require.NotNil(t, log)
	require.True(t, log.Enabled(nil, slog.LevelDebug))
}

func TestNewLoggerSelectsTextHandlerByDefault(t *testing.T) {
	log := NewLogger(Config{LogLevel: "info", LogFormat: "text"})
	require.NotNil(t, log)
	require.False(t, log.Enabled(nil, slog.LevelDebug))
	require.True(t, log.Enabled(nil, slog.LevelInfo))
}

func TestParseLogLevelUnknownFallsBackToInfo(t *testing.T) {
	require.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
}

func TestErrorAttrNilAndNonNil(t *testing.T) {
	attr := ErrorAttr(nil)
	require.Equal(t, "", attr.Value.String())

	attr = ErrorAttr(errors.New("boom"))
	require.Equal(t, "boom", attr.Value.String())
}
