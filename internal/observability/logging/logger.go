// Package logging builds the process-wide structured logger. Both binaries
// log JSON to stdout with a service attribute, so api and worker lines are
// distinguishable in a merged stream.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the service logger and installs it as the slog default, so
// library code logging through the default logger carries the same attributes.
func Setup(service, level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})).With("service", service)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
