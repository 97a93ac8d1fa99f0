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

// Environment variables that override the configured level and format.
const (
	EnvLevel  = "KAGIKACHI_LOG_LEVEL"
	EnvFormat = "KAGIKACHI_LOG_FORMAT"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the log level and output format.
type Config struct {
	Level  string
	Format string
}

// DefaultConfig logs at info level to the console.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatConsole}
}

// WithEnv returns cfg with any non-empty environment overrides applied.
func (cfg Config) WithEnv() Config {
	if v := strings.TrimSpace(os.Getenv(EnvLevel)); v != "" {
		cfg.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		cfg.Format = v
	}
	return cfg
}

// New builds a logger writing to out.
func New(cfg Config, out io.Writer, app string) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}

	switch strings.ToLower(cfg.Format) {
	case FormatConsole, "":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	case FormatJSON:
	default:
		return zerolog.Logger{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger(), nil
}

// Init builds a stderr logger from cfg and installs it as log.Logger.
func Init(cfg Config, app string) (zerolog.Logger, error) {
	logger, err := New(cfg, os.Stderr, app)
	if err != nil {
		return zerolog.Logger{}, err
	}
	log.Logger = logger
	return logger, nil
}
