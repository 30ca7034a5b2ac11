// Package logging builds the CLI's console logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LevelVar allows changing the console level after New.
var LevelVar = new(slog.LevelVar)

// ParseLevel maps a level name to a slog level.
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
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// New returns a tint console logger writing to w at level.
func New(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	LevelVar.Set(level)
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      LevelVar,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}
