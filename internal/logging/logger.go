package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. It is constructed once in main and handed to
// every component; nothing in the engine logs through a package global.
func New(serviceName, level string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// NewConsole is New with human readable output for interactive commands
func NewConsole(serviceName, level string) zerolog.Logger {
	return New(serviceName, level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
