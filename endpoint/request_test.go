package endpoint_test

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/mxclient/endpoint"
)

func TestNewRequest(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		method      string
		path        string
		opts        []endpoint.RequestOption
		wantURL     string
		wantBody    string
		wantCT      string
		wantHeaders http.Header
		wantErr     bool
	}{
		{
			name:    "bare get",
			method:  http.MethodGet,
			path:    "/_matrix/client/r0/account/whoami",
			wantURL: "/_matrix/client/r0/account/whoami",
		},
		{
			name:     "json payload",
			method:   http.MethodPost,
			path:     "/_matrix/client/r0/createRoom",
			opts:     []endpoint.RequestOption{endpoint.WithPayload(payload{Name: "lobby"})},
			wantURL:  "/_matrix/client/r0/createRoom",
			wantBody: "{\"name\":\"lobby\"}\n",
			wantCT:   "application/json",
		},
		{
			name:   "content type override",
			method: http.MethodPut,
			path:   "/upload",
			opts: []endpoint.RequestOption{
				endpoint.WithPayload("raw"),
				endpoint.WithContentType("text/plain"),
			},
			wantURL:  "/upload",
			wantBody: "\"raw\"\n",
			wantCT:   "text/plain",
		},
		{
			name:    "query",
			method:  http.MethodGet,
			path:    "/_matrix/client/r0/sync",
			opts:    []endpoint.RequestOption{endpoint.WithQuery(url.Values{"since": {"s1"}, "filter": {"{\"a\":1}"}})},
			wantURL: "/_matrix/client/r0/sync?filter=%7B%22a%22%3A1%7D&since=s1",
		},
		{
			name:        "headers",
			method:      http.MethodGet,
			path:        "/x",
			opts:        []endpoint.RequestOption{endpoint.WithHeaders(map[string][]string{"X-Test": {"a", "b"}})},
			wantURL:     "/x",
			wantHeaders: http.Header{"X-Test": {"a", "b"}},
		},
		{name: "relative path", method: http.MethodGet, path: "relative", wantErr: true},
		{name: "absolute url", method: http.MethodGet, path: "//evil.example.org/x", wantErr: true},
		{name: "empty content type", method: http.MethodGet, path: "/x", opts: []endpoint.RequestOption{endpoint.WithContentType("")}, wantErr: true},
		{name: "unencodable payload", method: http.MethodPost, path: "/x", opts: []endpoint.RequestOption{endpoint.WithPayload(make(chan int))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := endpoint.NewRequest(tt.method, tt.path, tt.opts...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if req.Method != tt.method {
				t.Errorf("method = %q, want %q", req.Method, tt.method)
			}
			if got := req.URL.String(); got != tt.wantURL {
				t.Errorf("url = %q, want %q", got, tt.wantURL)
			}
			if req.URL.IsAbs() {
				t.Error("request url must be relative")
			}
			if got := req.Header.Get("Content-Type"); got != tt.wantCT {
				t.Errorf("content type = %q, want %q", got, tt.wantCT)
			}

			body, err := io.ReadAll(req.Body)
			if err != nil {
				t.Fatalf("reading body: %v", err)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}

			for k, v := range tt.wantHeaders {
				if diff := cmp.Diff(v, req.Header.Values(k)); diff != "" {
					t.Errorf("header %s mismatch (-want +got):\n%s", k, diff)
				}
			}
		})
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		format   string
		segments []string
		want     string
	}{
		{
			format:   "/_matrix/client/r0/directory/room/%s",
			segments: []string{"#room:example.org"},
			want:     "/_matrix/client/r0/directory/room/%23room:example.org",
		},
		{
			format:   "/_matrix/client/r0/rooms/%s/send/%s/%s",
			segments: []string{"!abc:example.org", "m.room.message", "txn/1 2"},
			want:     "/_matrix/client/r0/rooms/%21abc:example.org/send/m.room.message/txn%2F1%202",
		},
	}

	for _, tt := range tests {
		if got := endpoint.Path(tt.format, tt.segments...); got != tt.want {
			t.Errorf("Path(%q, %q) = %q, want %q", tt.format, tt.segments, got, tt.want)
		}
	}
}

func TestPath_RoundTripsThroughNewRequest(t *testing.T) {
	path := endpoint.Path("/_matrix/client/r0/directory/room/%s", "#a/b:example.org")

	req, err := endpoint.NewRequest(http.MethodGet, path)
	if err != nil {
		t.Fatal(err)
	}

	if got := req.URL.EscapedPath(); got != path {
		t.Errorf("escaped path = %q, want %q", got, path)
	}
	if got := req.URL.Path; got != "/_matrix/client/r0/directory/room/#a/b:example.org" {
		t.Errorf("decoded path = %q", got)
	}
}
