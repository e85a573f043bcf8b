package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds the CLI logger: human-readable text on stderr, Info by
// default, Debug when verbose.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Components treat a
// nil logger as slog.Default(), so tests that want silence pass this.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
