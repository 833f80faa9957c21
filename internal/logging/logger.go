package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

type Config struct {
	Level  Level  `env:"LOG_LEVEL,default=info" validate:"required,oneof=trace debug info warn error fatal"`
	Format Format `env:"LOG_FORMAT,default=json" validate:"required,oneof=json console"`
}

// NewLogger builds the service logger writing to stdout.
func NewLogger(cfg Config) (*zerolog.Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg Config, out io.Writer) (*zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	switch cfg.Format {
	case FormatConsole:
		l := zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).Level(level).With().Timestamp().Logger()
		return &l, nil
	default:
		l := zerolog.New(out).With().Timestamp().Logger().Level(level)
		return &l, nil
	}
}

func parseLevel(level Level) (zerolog.Level, error) {
	switch level {
	case LevelTrace:
		return zerolog.TraceLevel, nil
	case LevelDebug:
		return zerolog.DebugLevel, nil
	case LevelInfo:
		return zerolog.InfoLevel, nil
	case LevelWarn:
		return zerolog.WarnLevel, nil
	case LevelError:
		return zerolog.ErrorLevel, nil
	case LevelFatal:
		return zerolog.FatalLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}
