package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the process-wide logger once: JSON to stdout plus a
// size-rotated file. Call from main before anything logs.
func Init(service, filePath string) *slog.Logger {
	once.Do(func() {
		_ = os.MkdirAll(filepath.Dir(filePath), 0o755)

		rot := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		h := slog.NewJSONHandler(io.MultiWriter(os.Stdout, rot), &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
		base = slog.New(h).With("service", service)
	})
	return base
}

// New returns a child of the process logger tagged with a component
// name. Falls back to a plain stdout logger when Init was never called
// (tests).
func New(component string) *slog.Logger {
	if base == nil {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", component)
	}
	return base.With("component", component)
}
