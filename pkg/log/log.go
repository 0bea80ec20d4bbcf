// Package log configures the process-wide slog logger shared by the
// fieldflow binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. Unknown level strings fall back to info.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})).With("service", "fieldflow"))
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
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

// WithModule returns the default logger tagged with the process role.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
