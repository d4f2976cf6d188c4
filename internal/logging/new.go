package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Log formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatAuto    = "auto"
)

var isTerminal = term.IsTerminal

// New builds the process logger. "json" uses slog's JSON handler, "console"
// uses zerolog's human-friendly writer, "auto" picks console when w is a
// terminal. Unknown levels fall back to info.
func New(w io.Writer, format, level string) Logger {
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if f, ok := w.(*os.File); ok && isTerminal(int(f.Fd())) {
			format = FormatConsole
		}
	}

	if format == FormatConsole {
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
		zl := zerolog.New(out).Level(zerologLevel(level)).With().Timestamp().Logger()
		return NewZerologLogger(zl)
	}

	return newSlogJSON(w, slogLevel(level))
}

// Nop returns a logger that discards everything; handy in tests.
func Nop() Logger {
	return NewZerologLogger(zerolog.Nop())
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
