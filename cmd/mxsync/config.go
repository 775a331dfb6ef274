package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the mxsync configuration file.
type Config struct {
	Matrix  MatrixConfig  `toml:"matrix"`
	Sync    SyncConfig    `toml:"sync"`
	HTTP    HTTPConfig    `toml:"http"`
	Logging LoggingConfig `toml:"logging"`
	State   StateConfig   `toml:"state"`
}

// MatrixConfig holds the account to sync as. Leaving both username and
// password empty registers a guest account.
type MatrixConfig struct {
	Homeserver string `toml:"homeserver"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	DeviceID   string `toml:"device_id"`
}

type SyncConfig struct {
	SuppressPresence bool     `toml:"suppress_presence"`
	FilterID         string   `toml:"filter_id"`
	TimelineLimit    int      `toml:"timeline_limit"`
	Since            string   `toml:"since"`
	PollInterval     Duration `toml:"poll_interval"`
}

type HTTPConfig struct {
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type StateConfig struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Guest reports whether the configuration asks for a guest account.
func (c *Config) Guest() bool {
	return c.Matrix.Username == "" && c.Matrix.Password == ""
}

// Load reads config from the given path, expanding environment variables.
// The result is not validated; flags may still override it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(string(data))
}

// Parse decodes a TOML document over the defaults.
func Parse(doc string) (*Config, error) {
	cfg := Config{
		Sync:    SyncConfig{PollInterval: Duration{2 * time.Second}},
		HTTP:    HTTPConfig{Timeout: Duration{90 * time.Second}, UserAgent: "mxsync"},
		Logging: LoggingConfig{Level: "info"},
	}

	md, err := toml.Decode(expandEnvVars(doc), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
	}

	return &cfg, nil
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}"))
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return errors.New("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("matrix.homeserver must use http or https scheme")
	}

	switch {
	case c.Matrix.Username != "" && c.Matrix.Password == "":
		return errors.New("matrix.password is required with matrix.username")
	case c.Matrix.Username == "" && c.Matrix.Password != "":
		return errors.New("matrix.username is required with matrix.password")
	}

	if c.Sync.TimelineLimit < 0 {
		return errors.New("sync.timeline_limit must not be negative")
	}
	if c.Sync.PollInterval.Duration < 0 {
		return errors.New("sync.poll_interval must not be negative")
	}
	if c.HTTP.Timeout.Duration < 0 {
		return errors.New("http.timeout must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
