package avi

import (
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger from a Config's log_level/log_format,
// grounded on go-musicfox's utils/slogx wiring (slog.NewTextHandler /
// slog.SetDefault), generalized to also offer JSON output when
// log_format is "json" (independent of the CLI's -format flag).
func NewLogger(cfg Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ErrorAttr mirrors go-musicfox's slogx.Error helper: wrap an error so
// it renders the same way across every log call site in this package.
func ErrorAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("")}
	}
	return slog.String("error", err.Error())
}
