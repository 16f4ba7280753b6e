package testutil

import (
	"io"
	"log/slog"

	"tawk-service/internal/logger"
)

// MakeNoopLogger returns a logger that discards everything, for use in tests.
func MakeNoopLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))}
}
