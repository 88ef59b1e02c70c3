// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or "file"
	Level  string // "trace", "debug", "info", "warn", "error"
	File   string // log file path (used when Output is "file")
	JSON   bool   // force JSON lines on stdout/stderr
}

// Init initializes the global zerolog logger with the given configuration.
// The returned function closes the log file, if any.
func Init(cfg Config) (func() error, error) {
	level := ParseLevel(cfg.Level)
	closer := func() error { return nil }

	var writer io.Writer
	console := !cfg.JSON
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if cfg.File == "" {
			return closer, errors.New("log file path is required for file output")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, errors.Wrapf(err, "failed to open log file: path=%s", cfg.File)
		}
		writer = f
		closer = f.Close
		console = false
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.CallerMarshalFunc = shortCaller

	logger := New(writer, level, console)
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return closer, nil
}

// New builds a logger writing to w. Console output is colored and uses a
// short time format; callers are attached at debug level and below.
func New(w io.Writer, level zerolog.Level, console bool) zerolog.Logger {
	if console {
		cw := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
		}
		if level <= zerolog.DebugLevel {
			cw.PartsOrder = []string{"time", "level", "message", "caller"}
			cw.FormatCaller = func(i interface{}) string {
				s, _ := i.(string)
				return "(" + s + ")"
			}
			return zerolog.New(cw).Level(level).With().Timestamp().Caller().Logger()
		}
		return zerolog.New(cw).Level(level).With().Timestamp().Logger()
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if level <= zerolog.DebugLevel {
		return ctx.Caller().Logger()
	}
	return ctx.Logger()
}

// ParseLevel parses the log level string. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// shortCaller keeps the last directory and file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
