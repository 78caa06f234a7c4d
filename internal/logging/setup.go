package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// SetupHandler configures a text slog handler with the provided writer and log level
func SetupHandler(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportTimestamp := false
	lvl := log.InfoLevel
	switch strings.ToLower(logLevel) {
	case "debug":
		reportTimestamp = true
		lvl = log.DebugLevel
	case "info":
		lvl = log.InfoLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		Level:           lvl,
	})
}

// New returns a named logger at the given level writing to stderr
func New(name, logLevel string) *slog.Logger {
	return slog.New(SetupHandler(logLevel, nil)).With("component", name)
}

// SetupLogger configures the default logger based on provided log level
func SetupLogger(logLevel string) {
	slog.SetDefault(slog.New(SetupHandler(logLevel, nil)))
}
