package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is shared by the API server and the CLI.
var Logger zerolog.Logger

// Init logs to stdout; the API server uses this.
func Init(level, format string) {
	InitWithWriter(level, format, os.Stdout)
}

// InitWithWriter logs to out. The CLI passes stderr so stdout carries only
// command results.
func InitWithWriter(level, format string, out io.Writer) {
	zerolog.SetGlobalLevel(parseLogLevel(level))

	ctx := zerolog.New(newWriter(format, out)).With().Timestamp()
	if isJSON(format) {
		// Machine-read logs get file:line; the console stays compact.
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger()
	log.Logger = Logger
}

func isJSON(format string) bool {
	return strings.EqualFold(format, "json")
}

func newWriter(format string, out io.Writer) io.Writer {
	if isJSON(format) {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// parseLogLevel accepts zerolog's names plus "warning" and "off".
// Anything unrecognised means info.
func parseLogLevel(level string) zerolog.Level {
	switch name := strings.ToLower(strings.TrimSpace(level)); name {
	case "warning":
		return zerolog.WarnLevel
	case "off":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	default:
		lvl, err := zerolog.ParseLevel(name)
		if err != nil {
			return zerolog.InfoLevel
		}
		return lvl
	}
}

// GetLogger returns the logger built by the last Init call.
func GetLogger() zerolog.Logger {
	return Logger
}
