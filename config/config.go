// Package config holds the server settings.
//
// Values are resolved in order: defaults, optional YAML file, environment,
// command line flags. Each later source only overrides what it sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	DataDir        string  `yaml:"data_dir"`
	FileName       string  `yaml:"file_name"`
	Backend        string  `yaml:"backend"`
	AllowedOrigins string  `yaml:"allowed_origins"`
	RateLimit      float64 `yaml:"rate_limit"` // requests per second per client; 0 disables
	RateBurst      int     `yaml:"rate_burst"`
	LogLevel       string  `yaml:"log_level"`
	Watch          bool    `yaml:"watch"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           3000,
		DataDir:        ".",
		FileName:       "data.xlsx",
		Backend:        "xlsx",
		AllowedOrigins: "*",
		RateBurst:      20,
		LogLevel:       "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Env variable names, keyed by the YAML key they override.
var envNames = map[string]string{
	"host":            "HOST",
	"port":            "PORT",
	"data_dir":        "DATA_DIR",
	"file_name":       "BOOKS_FILE",
	"backend":         "STORE_BACKEND",
	"allowed_origins": "ALLOWED_ORIGINS",
	"rate_limit":      "RATE_LIMIT",
	"rate_burst":      "RATE_BURST",
	"log_level":       "LOG_LEVEL",
	"watch":           "WATCH_DATA_FILE",
}

// ApplyEnv overrides fields from non-empty environment variables returned by
// lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for key, name := range envNames {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Set assigns one field by its YAML key from its string form.
func (c *Config) Set(key, v string) error {
	var err error
	switch key {
	case "host":
		c.Host = v
	case "port":
		c.Port, err = strconv.Atoi(v)
	case "data_dir":
		c.DataDir = v
	case "file_name":
		c.FileName = v
	case "backend":
		c.Backend = v
	case "allowed_origins":
		c.AllowedOrigins = v
	case "rate_limit":
		c.RateLimit, err = strconv.ParseFloat(v, 64)
	case "rate_burst":
		c.RateBurst, err = strconv.Atoi(v)
	case "log_level":
		c.LogLevel = v
	case "watch":
		c.Watch, err = strconv.ParseBool(v)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return err
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Backend {
	case "xlsx", "sqlite", "json", "memory":
	default:
		return fmt.Errorf("unknown backend %q (supported: xlsx, sqlite, json, memory)", c.Backend)
	}
	if c.Backend == "xlsx" && !strings.HasSuffix(strings.ToLower(c.FileName), ".xlsx") {
		return fmt.Errorf("file name %q must end in .xlsx", c.FileName)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit %v must not be negative", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate burst %d must be at least 1", c.RateBurst)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (debug, info, warn, error)", c.LogLevel)
}
