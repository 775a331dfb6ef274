package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Client is a handle onto a homeserver. The homeserver origin and transport
// are fixed at Build; the session is shared by every handle derived from it
// with Clone.
type Client struct {
	homeserver *url.URL
	c          *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	session    *sessionStore
}

// Build creates a Client for the homeserver at homeserverURL. Only the
// scheme and host are used; every endpoint supplies its own path.
// If not specified, a copy of http.DefaultClient and http.DefaultTransport
// are used.
func Build(homeserverURL string, optFns ...Option) (*Client, error) {
	homeserver, err := parseHomeserver(homeserverURL)
	if err != nil {
		return nil, err
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		homeserver: homeserver,
		c:          &http.Client{},
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer("mxclient"),
		session:    &sessionStore{},
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.tlsConfig != nil {
		base, ok := transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("configuring tls: %w", ErrTLSNeedsHTTPTransport)
		}
		base = base.Clone()
		base.TLSClientConfig = opts.tlsConfig.Clone()
		transport = base
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	client.c.Transport = transport

	if opts.session != nil {
		client.session.set(*opts.session)
	}

	return client, nil
}

// Clone returns a new handle onto the same homeserver, transport and
// session. A session stored through either handle is seen by both.
func (c *Client) Clone() *Client {
	cpy := *c
	return &cpy
}

// Homeserver returns a copy of the homeserver origin.
func (c *Client) Homeserver() *url.URL {
	u := *c.homeserver
	return &u
}

// Session returns a copy of the current session, if any. Useful for
// persisting the session to be restored later with WithSession.
func (c *Client) Session() (Session, bool) {
	return c.session.get()
}

// SetSession replaces the current session for every handle of the client.
func (c *Client) SetSession(session Session) {
	c.session.set(session)
}

// ClearSession drops the current session. Authenticated endpoints fail with
// ErrAuthenticationRequired until a new one is obtained.
func (c *Client) ClearSession() {
	c.session.clear()
}

// CloseIdleConnections closes idle connections held by the transport.
func (c *Client) CloseIdleConnections() {
	c.c.CloseIdleConnections()
}

// closeBody drains and closes a response body so the connection can be reused.
func (c *Client) closeBody(ctx context.Context, resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.ErrorContext(ctx, "failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
	}
}

func parseHomeserver(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("homeserver url: %w", ErrInvalidHomeserver)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("homeserver url[%s]: %w: %w", raw, ErrInvalidHomeserver, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("homeserver url[%s] scheme must be http or https: %w", raw, ErrInvalidHomeserver)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("homeserver url[%s] has no host: %w", raw, ErrInvalidHomeserver)
	}

	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
