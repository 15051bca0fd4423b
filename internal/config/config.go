// Package config loads the wsecho server configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Server modes.
const (
	ModeEcho      = "echo"
	ModeBroadcast = "broadcast"
)

// Config is the server configuration.
type Config struct {
	Addr           string    `yaml:"addr"`
	Path           string    `yaml:"path"`
	Mode           string    `yaml:"mode"`
	MaxMessageSize int64     `yaml:"max_message_size"`
	ReadBufferSize int       `yaml:"read_buffer_size"`
	RateLimit      RateLimit `yaml:"rate_limit"`
	Log            Log       `yaml:"log"`
}

// RateLimit bounds inbound data messages per connection.
type RateLimit struct {
	Enabled           bool    `yaml:"enabled"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a configuration that serves echo on :8080/ws.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		Path:           "/ws",
		Mode:           ModeEcho,
		MaxMessageSize: 1 << 20,
		ReadBufferSize: 4096,
		RateLimit: RateLimit{
			Enabled:           true,
			MessagesPerSecond: 100,
			Burst:             200,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: addr is required")
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("config: path %q must start with /", c.Path)
	case c.Mode != ModeEcho && c.Mode != ModeBroadcast:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	case c.MaxMessageSize < 0:
		return fmt.Errorf("config: max_message_size must not be negative, got %d", c.MaxMessageSize)
	case c.ReadBufferSize < 0:
		return fmt.Errorf("config: read_buffer_size must not be negative, got %d", c.ReadBufferSize)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MessagesPerSecond <= 0 {
			return fmt.Errorf("config: rate_limit.messages_per_second must be positive, got %g", c.RateLimit.MessagesPerSecond)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("config: rate_limit.burst must be at least 1, got %d", c.RateLimit.Burst)
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: unsupported log format %q", c.Log.Format)
	}

	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: unsupported log level %q", l.Level)
	}
	return level, nil
}
