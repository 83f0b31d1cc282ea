package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the level, format (json or console) and destination of a logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds the process logger.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Nop is a disabled logger for tests and library callers that do not log.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
