package debug

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger.
//
// level is one of debug, info, warn, error; format is text or json. Debug
// mode (WITNESS_DEBUG) forces the debug level whatever level says.
//
// Example:
//
//	debug.Init()
//	logger, err := debug.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if Active.Enabled {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
