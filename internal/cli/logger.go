// Package cli holds the terminal front end of the weather lookup.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
)

// InitLogger initializes and configures a Charm logger
func InitLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    verbose,
		ReportTimestamp: verbose,
	})

	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}

// ServiceLogger returns the zerolog logger handed to the weather service.
// It is silent unless verbose is set.
func ServiceLogger(verbose bool, out io.Writer) *zerolog.Logger {
	if !verbose {
		nop := zerolog.Nop()
		return &nop
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: out}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
	return &l
}
