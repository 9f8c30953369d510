// Package logging builds the leveled loggers shared by the server and its
// packages. The logger type is the one echo uses, so a single instance can
// be installed as e.Logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

// New creates a JSON-header logger writing to stdout.
func New(prefix, level string) *log.Logger {
	l := log.New(prefix)
	l.SetOutput(os.Stdout)
	l.SetHeader(header)
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}

// ParseLevel maps a config string onto a gommon level, defaulting to INFO.
func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}
