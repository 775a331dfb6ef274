package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
	"github.com/adamwoolhether/mxclient/homeserver"
)

func TestRun_GuestResumes(t *testing.T) {
	hs := homeserver.New("example.org", homeserver.WithLogger(slog.New(slog.DiscardHandler)))
	srv := httptest.NewServer(hs)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	args := []string{
		"--config", filepath.Join(dir, "absent.toml"),
		"--homeserver", srv.URL,
		"--state", statePath,
		"--guest",
		"--once",
		"--no-color",
		"--log-level", "error",
	}

	var out bytes.Buffer
	if err := run(t.Context(), args, &out); err != nil {
		t.Fatalf("first run: %v", err)
	}

	first, err := LoadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if first.Session == nil || !strings.HasSuffix(first.Session.UserID, ":example.org") {
		t.Fatalf("session not saved: %+v", first)
	}
	if first.NextBatch == "" {
		t.Fatal("cursor not saved")
	}
	if !strings.Contains(out.String(), first.Session.UserID) {
		t.Errorf("output does not name the user:\n%s", out.String())
	}

	out.Reset()
	if err := run(t.Context(), args, &out); err != nil {
		t.Fatalf("second run: %v", err)
	}

	second, err := LoadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if second.Session.UserID != first.Session.UserID {
		t.Errorf("second run registered again: %s != %s", second.Session.UserID, first.Session.UserID)
	}
	if !strings.Contains(out.String(), "no changes") {
		t.Errorf("resumed sync reported changes:\n%s", out.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()

	err := run(t.Context(), []string{
		"--config", filepath.Join(dir, "absent.toml"),
		"--homeserver", "ftp://example.org",
		"--state", filepath.Join(dir, "state.json"),
	}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "http or https") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_MissingConfig(t *testing.T) {
	err := run(t.Context(), []string{"--config", filepath.Join(t.TempDir(), "absent.toml")}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	raw := `{
		"next_batch": "s9",
		"rooms": {
			"join": {
				"!a:example.org": {"timeline": {"events": [{}, {}]}, "state": {"events": [{}]}},
				"!b:example.org": {"timeline": {"events": [{}]}}
			},
			"invite": {"!c:example.org": {"invite_state": {"events": [{}, {}]}}}
		},
		"presence": {"events": [{}]}
	}`

	var resp syncevents.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}

	got := summarize(&resp)
	want := summary{NextBatch: "s9", Joined: 2, Invited: 1, Timeline: 3, State: 3, Presence: 1}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
	if got.empty() {
		t.Error("empty() = true")
	}
	if !(summary{NextBatch: "s9"}).empty() {
		t.Error("empty() = false for a batch with nothing in it")
	}
}
