// Package logging builds the slog loggers used across equilibria. Records are
// rendered by a charmbracelet/log handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a level name to a slog.Level. Unknown names are an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ParseFormat maps a format name to a charmbracelet formatter.
func ParseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("unknown log format %q", s)
	}
}

// NewLogger creates a leveled slog.Logger writing to w. Invalid level or
// format names fall back to info and text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(level)
	formatter, _ := ParseFormat(format)
	handler := log.NewWithOptions(w, log.Options{
		Level:           log.Level(lvl),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "equilibria",
		Formatter:       formatter,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
