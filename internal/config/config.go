// Package config loads server settings from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/internal/logging"
	"github.com/luciancaetano/kagikachi/internal/protocol"
	"github.com/luciancaetano/kagikachi/internal/websocket"
)

// Config is the resolved server configuration.
type Config struct {
	Addr           string
	MaskResponses  bool
	MaxPayloadSize int64
	ReadTimeout    time.Duration
	RateLimit      websocket.RateLimitConfig
	Log            logging.Config
}

type fileConfig struct {
	Addr           string          `toml:"addr"`
	MaskResponses  bool            `toml:"mask_responses"`
	MaxPayloadSize int64           `toml:"max_payload_size"`
	ReadTimeout    string          `toml:"read_timeout"`
	RateLimit      rateLimitConfig `toml:"rate_limit"`
	Log            logConfig       `toml:"log"`
}

type rateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	MessagesPerSecond float64 `toml:"messages_per_second"`
	Burst             int     `toml:"burst"`
}

type logConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	limits := websocket.DefaultRateLimitConfig()
	limits.Enabled = false
	return Config{
		Addr:           kagikachi.DefaultAddr,
		MaskResponses:  true,
		MaxPayloadSize: protocol.DefaultMaxPayloadSize,
		RateLimit:      *limits,
		Log:            logging.DefaultConfig(),
	}
}

// Load reads path and applies every key it defines on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("mask_responses") {
		cfg.MaskResponses = raw.MaskResponses
	}

	if meta.IsDefined("max_payload_size") {
		if raw.MaxPayloadSize <= 0 {
			return Config{}, fmt.Errorf("max_payload_size must be positive, got %d", raw.MaxPayloadSize)
		}
		cfg.MaxPayloadSize = raw.MaxPayloadSize
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("read_timeout must not be negative, got %v", d)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("rate_limit", "enabled") {
		cfg.RateLimit.Enabled = raw.RateLimit.Enabled
	}

	if meta.IsDefined("rate_limit", "messages_per_second") {
		cfg.RateLimit.MessagesPerSecond = rate.Limit(raw.RateLimit.MessagesPerSecond)
	}

	if meta.IsDefined("rate_limit", "burst") {
		cfg.RateLimit.Burst = raw.RateLimit.Burst
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}

	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.TrimSpace(raw.Log.Format)
	}

	return cfg, nil
}

// ServerConfig converts c into a server configuration.
func (c Config) ServerConfig() *websocket.ServerConfig {
	limits := c.RateLimit
	return &websocket.ServerConfig{
		Addr:            c.Addr,
		RateLimitConfig: &limits,
		MaskResponses:   c.MaskResponses,
		MaxPayloadSize:  c.MaxPayloadSize,
		ReadTimeout:     c.ReadTimeout,
	}
}
