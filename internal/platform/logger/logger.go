package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Services log with the
// *Context variants so request-scoped attributes flow through.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
