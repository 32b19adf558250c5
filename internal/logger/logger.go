// Package logger is the process-wide structured logger. Calls take a message
// followed by alternating key/value pairs.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the logger from LOG_LEVEL (debug, info, warn, error) and
// LOG_FORMAT (json, or console when unset).
func Init() {
	log = Setup(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Setup builds a logger writing to w. Unknown levels fall back to info.
func Setup(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "arena-wallet").Logger()
}

// Entry is a logger carrying extra fields.
type Entry struct {
	l zerolog.Logger
}

func WithError(err error) Entry {
	return Entry{l: log.With().Err(err).Logger()}
}

func With(kv ...any) Entry {
	return Entry{l: log.With().Fields(kv).Logger()}
}

func (e Entry) Debug(msg string, kv ...any) { emit(e.l.Debug(), msg, kv) }
func (e Entry) Info(msg string, kv ...any)  { emit(e.l.Info(), msg, kv) }
func (e Entry) Warn(msg string, kv ...any)  { emit(e.l.Warn(), msg, kv) }
func (e Entry) Error(msg string, kv ...any) { emit(e.l.Error(), msg, kv) }

func emit(ev *zerolog.Event, msg string, kv []any) {
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(msg)
}

func Debug(msg string, kv ...any) { emit(log.Debug(), msg, kv) }
func Info(msg string, kv ...any)  { emit(log.Info(), msg, kv) }
func Warn(msg string, kv ...any)  { emit(log.Warn(), msg, kv) }
func Error(msg string, kv ...any) { emit(log.Error(), msg, kv) }

func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}
