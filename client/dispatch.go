package client

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/mxclient/endpoint"
)

// accessTokenParam is the query parameter carrying the credential.
const accessTokenParam = "access_token"

// Dispatch sends req to the homeserver through endpoint e and decodes the
// typed response.
//
// The access token of the current session is appended to the query string
// when e requires authentication; with no session Dispatch fails with
// ErrAuthenticationRequired before any I/O. Dispatch never modifies the
// session.
func Dispatch[Req, Resp any](ctx context.Context, c *Client, e endpoint.Endpoint[Req, Resp], req Req) (Resp, error) {
	var zero Resp
	meta := e.Metadata()

	ctx, span := c.tracer.Start(ctx, "client.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("matrix.endpoint", meta.Name),
			attribute.String("http.request.method", meta.Method),
			attribute.Bool("matrix.authenticated", meta.RequiresAuthentication),
		),
	)
	defer span.End()

	fail := func(kind, err error) (Resp, error) {
		dispatchErr := &Error{Kind: kind, Endpoint: meta.Name, Err: err}
		span.RecordError(dispatchErr)
		span.SetStatus(codes.Error, kind.Error())
		c.logger.DebugContext(ctx, "dispatch failed", "endpoint", meta.Name, "error", dispatchErr)

		return zero, dispatchErr
	}

	httpReq, err := e.NewRequest(req)
	if err != nil {
		return fail(ErrRequestConstruction, err)
	}
	if httpReq == nil || httpReq.URL == nil {
		return fail(ErrRequestConstruction, errors.New("endpoint produced no request"))
	}

	resolved, token, err := c.resolve(httpReq.URL, meta.RequiresAuthentication)
	if err != nil {
		if errors.Is(err, ErrAuthenticationRequired) {
			return fail(ErrAuthenticationRequired, nil)
		}
		return fail(ErrURLConstruction, err)
	}

	httpReq = httpReq.WithContext(ctx)
	httpReq.URL = resolved
	httpReq.Host = ""
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	c.logger.DebugContext(ctx, "dispatching request", "endpoint", meta.Name, "method", httpReq.Method, "path", resolved.Path)

	resp, err := c.c.Do(httpReq)
	if err != nil {
		return fail(ErrTransport, redactToken(err, token))
	}
	defer c.closeBody(ctx, resp)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	out, err := e.DecodeResponse(resp)
	if err != nil {
		return fail(ErrResponseDecoding, err)
	}

	return out, nil
}

// resolve overlays the path and query of ref onto the homeserver origin and,
// when auth is set, appends the session's access token. The session is read
// once. The returned token is empty for unauthenticated requests.
func (c *Client) resolve(ref *url.URL, auth bool) (*url.URL, string, error) {
	u := *c.homeserver
	u.Path = ref.Path
	u.RawPath = ref.RawPath
	u.RawQuery = ref.RawQuery

	var token string
	if auth {
		session, ok := c.session.get()
		if !ok {
			return nil, "", ErrAuthenticationRequired
		}
		token = session.AccessToken

		pair := url.Values{accessTokenParam: {token}}.Encode()
		if u.RawQuery == "" {
			u.RawQuery = pair
		} else {
			u.RawQuery += "&" + pair
		}
	}

	resolved, err := url.Parse(u.String())
	if err != nil {
		return nil, "", redactToken(err, token)
	}
	if resolved.Scheme == "" || resolved.Host == "" {
		return nil, "", errors.New("resolved url has no scheme or host")
	}

	return resolved, token, nil
}

// redactToken masks the access token inside URL-bearing errors so it does
// not reach logs.
func redactToken(err error, token string) error {
	if token == "" {
		return err
	}

	if urlErr, ok := errors.AsType[*url.Error](err); ok {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(token), "REDACTED")
	}

	return err
}
