// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options holds logger configuration.
type Options struct {
	Level   string    // trace, debug, info, warn, error (default info)
	Format  Format    // console or json (default console)
	Output  io.Writer // default os.Stderr
	NoColor bool      // disable colors in console format
}

// ParseLevel converts a level name to a zerolog level.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return lvl, nil
}

// New builds a logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: "15:04:05.000",
		}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", opts.Format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup installs a logger built from opts as the global logger. The level is
// applied process-wide so that SetLevel also reaches component loggers that
// were derived earlier.
func Setup(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	opts.Level = zerolog.TraceLevel.String()
	logger, err := New(opts)
	if err != nil {
		return err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(lvl)
	log.Logger = logger
	return nil
}

// SetLevel changes the process-wide log level.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Component returns a child of base tagged with name.
// A nil base uses the global logger.
func Component(base *zerolog.Logger, name string) zerolog.Logger {
	if base == nil {
		base = &log.Logger
	}
	return base.With().Str("component", name).Logger()
}
