package diag

import (
	"context"
	"log/slog"
)

// LevelTrace sits between info and warn so that stage events can be
// enabled without the per-instruction debug records.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs a compiler or VM stage event.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
