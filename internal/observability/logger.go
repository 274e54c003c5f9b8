package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the logger for batch commands. It writes to stderr, unlike
// the shared service logger, so command reports on stdout stay clean. Format
// "text" selects the text handler, anything else JSON. Unknown levels fall
// back to info.
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
