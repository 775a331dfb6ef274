package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	t.Setenv("MXSYNC_TEST_PASSWORD", "hunter2")

	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[matrix]
homeserver = "https://matrix.example.org"
username = "alice"
password = "${MXSYNC_TEST_PASSWORD}"
device_id = "LAPTOP"

[sync]
suppress_presence = true
timeline_limit = 20
poll_interval = "500ms"

[http]
timeout = "2m"

[logging]
level = "debug"

[state]
path = "/var/lib/mxsync/state.json"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := Config{
		Matrix: MatrixConfig{
			Homeserver: "https://matrix.example.org",
			Username:   "alice",
			Password:   "hunter2",
			DeviceID:   "LAPTOP",
		},
		Sync: SyncConfig{
			SuppressPresence: true,
			TimelineLimit:    20,
			PollInterval:     Duration{500 * time.Millisecond},
		},
		HTTP:    HTTPConfig{Timeout: Duration{2 * time.Minute}, UserAgent: "mxsync"},
		Logging: LoggingConfig{Level: "debug"},
		State:   StateConfig{Path: "/var/lib/mxsync/state.json"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Guest() {
		t.Error("Guest() = true for a configured user")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(`[matrix]
homeserver = "http://localhost:8008"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !cfg.Guest() {
		t.Error("Guest() = false without credentials")
	}
	if cfg.Sync.PollInterval.Duration != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.Sync.PollInterval)
	}
	if cfg.HTTP.Timeout.Duration != 90*time.Second {
		t.Errorf("timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "syntax", doc: `[matrix`, want: "parsing config"},
		{name: "unknown key", doc: "[matrix]\nhomesrever = \"x\"", want: `unknown key "matrix.homesrever"`},
		{name: "bad duration", doc: "[sync]\npoll_interval = \"soon\"", want: "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Matrix:  MatrixConfig{Homeserver: "https://matrix.example.org", Username: "alice", Password: "pw"},
			Logging: LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "guest", modify: func(c *Config) { c.Matrix.Username, c.Matrix.Password = "", "" }},
		{name: "no homeserver", modify: func(c *Config) { c.Matrix.Homeserver = "" }, want: "matrix.homeserver is required"},
		{name: "bad scheme", modify: func(c *Config) { c.Matrix.Homeserver = "ftp://example.org" }, want: "http or https"},
		{name: "no password", modify: func(c *Config) { c.Matrix.Password = "" }, want: "matrix.password is required"},
		{name: "no username", modify: func(c *Config) { c.Matrix.Username = "" }, want: "matrix.username is required"},
		{name: "negative limit", modify: func(c *Config) { c.Sync.TimelineLimit = -1 }, want: "timeline_limit"},
		{name: "negative timeout", modify: func(c *Config) { c.HTTP.Timeout = Duration{-time.Second} }, want: "http.timeout"},
		{name: "bad level", modify: func(c *Config) { c.Logging.Level = "trace" }, want: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()
			switch {
			case tt.want == "" && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.want != "" && (err == nil || !strings.Contains(err.Error(), tt.want)):
				t.Fatalf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
