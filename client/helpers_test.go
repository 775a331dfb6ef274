package client_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/adamwoolhether/mxclient/client"
)

const testHomeserver = "https://hs.example.org"

var testSession = client.Session{
	AccessToken: "syt_YWxpY2U_secret",
	DeviceID:    "GHTYAJCE",
	UserID:      "@alice:example.org",
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

// recorder is a scripted transport. It records every request that reaches
// it and answers with respond.
type recorder struct {
	mu      sync.Mutex
	reqs    []*http.Request
	bodies  []string
	respond func(r *http.Request, n int) (*http.Response, error)
}

func (rec *recorder) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	rec.mu.Lock()
	rec.reqs = append(rec.reqs, r)
	rec.bodies = append(rec.bodies, string(body))
	n := len(rec.reqs)
	rec.mu.Unlock()

	if rec.respond == nil {
		return jsonResponse(r, http.StatusOK, `{}`), nil
	}

	return rec.respond(r, n)
}

func (rec *recorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return len(rec.reqs)
}

func (rec *recorder) request(i int) *http.Request {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.reqs[i]
}

func (rec *recorder) body(i int) string {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.bodies[i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newClient(t *testing.T, rt http.RoundTripper, opts ...client.Option) *client.Client {
	t.Helper()

	base := []client.Option{
		client.WithTransport(rt),
		client.WithLogger(discardLogger()),
	}

	c, err := client.Build(testHomeserver, append(base, opts...)...)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	return c
}
