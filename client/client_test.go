package client_test

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/mxclient/api/r0/account/whoami"
	"github.com/adamwoolhether/mxclient/client"
	"github.com/adamwoolhether/mxclient/endpoint"
)

func TestBuild_Homeserver(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "https origin", raw: "https://matrix.example.org", want: "https://matrix.example.org"},
		{name: "port kept", raw: "http://localhost:8008", want: "http://localhost:8008"},
		{name: "path dropped", raw: "https://example.org/some/prefix?x=1", want: "https://example.org"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no scheme", raw: "example.org", wantErr: true},
		{name: "unsupported scheme", raw: "ftp://example.org", wantErr: true},
		{name: "no host", raw: "https://", wantErr: true},
		{name: "unparseable", raw: "https://exa mple.org:port", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.Build(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, client.ErrInvalidHomeserver) {
					t.Fatalf("expected ErrInvalidHomeserver, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.Homeserver().String(); got != tt.want {
				t.Errorf("homeserver = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_HomeserverIsCopied(t *testing.T) {
	c, err := client.Build(testHomeserver)
	if err != nil {
		t.Fatal(err)
	}

	c.Homeserver().Host = "evil.example.org"

	if got := c.Homeserver().Host; got != "hs.example.org" {
		t.Errorf("homeserver mutated through returned copy: %q", got)
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  client.Option
	}{
		{name: "nil http client", opt: client.WithHTTPClient(nil)},
		{name: "nil transport", opt: client.WithTransport(nil)},
		{name: "nil tls config", opt: client.WithTLSConfig(nil)},
		{name: "negative timeout", opt: client.WithTimeout(-time.Second)},
		{name: "nil logger", opt: client.WithLogger(nil)},
		{name: "nil tracer", opt: client.WithTracer(nil)},
		{name: "empty session", opt: client.WithSession(client.Session{UserID: "@alice:example.org"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.Build(testHomeserver, tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClient_WithUserAgent(t *testing.T) {
	rec := &recorder{respond: func(r *http.Request, _ int) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `{"user_id":"@alice:example.org"}`), nil
	}}

	c := newClient(t, rec, client.WithUserAgent("mxclient-test/1.0"), client.WithSession(testSession))

	if _, err := client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := rec.request(0).Header.Get("User-Agent"); got != "mxclient-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", got, "mxclient-test/1.0")
	}
}

func TestClient_WithTransport(t *testing.T) {
	var called bool
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(r, http.StatusOK, `{"user_id":"@alice:example.org"}`), nil
	})

	c := newClient(t, rt, client.WithSession(testSession))

	resp, err := client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !called {
		t.Error("custom transport was not used")
	}
	if resp.UserID != "@alice:example.org" {
		t.Errorf("user_id = %q", resp.UserID)
	}
}

func TestClient_WithTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c, err := client.Build(ts.URL,
		client.WithTimeout(50*time.Millisecond),
		client.WithLogger(discardLogger()),
		client.WithSession(testSession),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
	if !errors.Is(err, client.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) || !urlErr.Timeout() {
		t.Errorf("expected a timeout url.Error, got %v", err)
	}
}

func TestClient_OptionOrderIndependence(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}

	for _, opts := range [][]client.Option{
		{client.WithHTTPClient(hc), client.WithTimeout(50 * time.Millisecond)},
		{client.WithTimeout(50 * time.Millisecond), client.WithHTTPClient(hc)},
	} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))

		c, err := client.Build(ts.URL, append(opts, client.WithSession(testSession), client.WithLogger(discardLogger()))...)
		if err != nil {
			ts.Close()
			t.Fatal(err)
		}

		start := time.Now()
		_, err = client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
		elapsed := time.Since(start)
		ts.Close()

		if !errors.Is(err, client.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if elapsed > time.Second {
			t.Errorf("WithTimeout did not override the http.Client timeout: took %s", elapsed)
		}
	}
}

func TestClient_WithHTTPClientIsNotMutated(t *testing.T) {
	rec := &recorder{respond: func(r *http.Request, _ int) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `{"user_id":"@alice:example.org"}`), nil
	}}
	hc := &http.Client{Timeout: 5 * time.Second, Transport: rec}

	c, err := client.Build(testHomeserver,
		client.WithHTTPClient(hc),
		client.WithTimeout(time.Second),
		client.WithUserAgent("ua"),
		client.WithNoFollowRedirects(),
		client.WithSession(testSession),
		client.WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if rec.count() != 1 {
		t.Errorf("the caller's transport was not used: %d requests", rec.count())
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("caller's timeout changed to %s", hc.Timeout)
	}
	if hc.Transport != rec {
		t.Error("caller's transport was replaced")
	}
	if hc.CheckRedirect != nil {
		t.Error("caller's CheckRedirect was set")
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/r0/account/whoami", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/moved", http.StatusFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"@moved:example.org"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	t.Run("follows by default", func(t *testing.T) {
		c, err := client.Build(ts.URL, client.WithSession(testSession), client.WithLogger(discardLogger()))
		if err != nil {
			t.Fatal(err)
		}

		resp, err := client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if resp.UserID != "@moved:example.org" {
			t.Errorf("user_id = %q", resp.UserID)
		}
	})

	t.Run("does not follow", func(t *testing.T) {
		c, err := client.Build(ts.URL, client.WithNoFollowRedirects(), client.WithSession(testSession), client.WithLogger(discardLogger()))
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
		if !errors.Is(err, client.ErrResponseDecoding) {
			t.Fatalf("expected ErrResponseDecoding, got %v", err)
		}

		var apiErr *endpoint.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusFound {
			t.Errorf("expected APIError with status 302, got %v", err)
		}
	})
}

func TestClient_WithTLSConfig(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"@alice:example.org"}`))
	}))
	defer ts.Close()

	t.Run("trusted", func(t *testing.T) {
		pool := x509.NewCertPool()
		pool.AddCert(ts.Certificate())

		c, err := client.Build(ts.URL,
			client.WithTLSConfig(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}),
			client.WithSession(testSession),
			client.WithLogger(discardLogger()),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer c.CloseIdleConnections()

		if _, err := client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{}); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	})

	t.Run("untrusted", func(t *testing.T) {
		c, err := client.Build(ts.URL, client.WithSession(testSession), client.WithLogger(discardLogger()))
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.Dispatch(t.Context(), c, whoami.Endpoint, whoami.Request{})
		if !errors.Is(err, client.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("non http transport", func(t *testing.T) {
		_, err := client.Build(ts.URL,
			client.WithTransport(&recorder{}),
			client.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		)
		if !errors.Is(err, client.ErrTLSNeedsHTTPTransport) {
			t.Fatalf("expected ErrTLSNeedsHTTPTransport, got %v", err)
		}
	})
}

func TestClient_WithSession(t *testing.T) {
	c := newClient(t, &recorder{}, client.WithSession(testSession))

	got, ok := c.Session()
	if !ok {
		t.Fatal("expected restored session")
	}
	if diff := cmp.Diff(testSession, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Clone(t *testing.T) {
	c := newClient(t, &recorder{})
	clone := c.Clone()

	if _, ok := clone.Session(); ok {
		t.Fatal("fresh clone has a session")
	}

	c.SetSession(testSession)

	got, ok := clone.Session()
	if !ok {
		t.Fatal("session set on the original is not visible on the clone")
	}
	if diff := cmp.Diff(testSession, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	clone.ClearSession()

	if _, ok := c.Session(); ok {
		t.Error("session cleared on the clone is still visible on the original")
	}

	if c.Homeserver().String() != clone.Homeserver().String() {
		t.Error("clone points at a different homeserver")
	}
}
