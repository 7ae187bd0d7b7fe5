package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithBoard returns a logger with board session context fields attached.
// Use this for all logging within a board WebSocket session.
func WithBoard(boardSlug, userSlug, clientIP string) *slog.Logger {
	return slog.With(
		"board", boardSlug,
		"user", userSlug,
		"client_ip", clientIP,
	)
}

// WithCommand returns a logger scoped to a specific command dispatch.
func WithCommand(logger *slog.Logger, command string) *slog.Logger {
	return logger.With("command", command)
}
