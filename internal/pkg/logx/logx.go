/*
Package logx provides the structured logging layer of the QuickTalk server, built on zerolog.

It owns the process-wide logger, chooses between a human-readable console writer (development)
and JSON output (everything else), and exposes small key/value helpers so call sites never have
to build zerolog events by hand for one-off messages.
*/
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the global logger is built.
type Options struct {
	// Development switches to the colored console writer on stderr.
	Development bool

	// Level is a zerolog level name. Empty means debug in development and info otherwise.
	Level string

	// Service is attached to every record as the "service" field when set.
	Service string
}

// Init builds the global logger from opts and installs it as zerolog's default logger.
func Init(opts Options) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	if opts.Development {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}

	log.Logger = ctx.Caller().Logger().Level(parseLevel(opts.Level, opts.Development))
}

func parseLevel(name string, development bool) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if development {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// pairs drops a trailing unpaired field instead of letting zerolog panic on it.
func pairs(level string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Str("log_level", level).
		Int("fields_count", len(fields)).
		Msg("logx call received an odd number of fields; last field dropped")

	return fields[:len(fields)-1]
}

// Debug records msg at debug level with optional key/value fields.
func Debug(msg string, fields ...any) {
	Logger().Debug().Fields(pairs("debug", fields)).CallerSkipFrame(1).Msg(msg)
}

// Info records msg at info level with optional key/value fields.
func Info(msg string, fields ...any) {
	Logger().Info().Fields(pairs("info", fields)).CallerSkipFrame(1).Msg(msg)
}

// Warn records msg at warn level with optional key/value fields.
func Warn(msg string, fields ...any) {
	Logger().Warn().Fields(pairs("warn", fields)).CallerSkipFrame(1).Msg(msg)
}

// Error records err and msg at error level with optional key/value fields.
func Error(err error, msg string, fields ...any) {
	Logger().Error().Err(err).Fields(pairs("error", fields)).CallerSkipFrame(1).Msg(msg)
}

// Fatal records err and msg at fatal level and terminates the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().Err(err).Fields(pairs("fatal", fields)).CallerSkipFrame(1).Msg(msg)
}
