package endpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// NewRequest instantiates a relative *http.Request for the given method and
// path. The path must already have its parameters substituted, see [Path].
// Content-Type defaults to `application/json` when a payload is set.
func NewRequest(method, path string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path[%s] must be absolute", path)
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path: %w", err)
	}
	if u.IsAbs() || u.Host != "" {
		return nil, fmt.Errorf("path[%s] must not carry a scheme or host", path)
	}
	if len(settings.query) > 0 {
		u.RawQuery = settings.query.Encode()
	}

	body := io.Reader(http.NoBody)
	if settings.body != nil {
		var payload bytes.Buffer
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = &payload
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if settings.body != nil {
		contentType := "application/json"
		if settings.contentType != nil {
			contentType = *settings.contentType
		}
		req.Header.Set("Content-Type", contentType)
	}

	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// Path fills the `%s` verbs of format with the path-escaped segments.
//
//	endpoint.Path("/_matrix/client/r0/directory/room/%s", "#room:example.org")
//	// "/_matrix/client/r0/directory/room/%23room:example.org"
func Path(format string, segments ...string) string {
	args := make([]any, len(segments))
	for i, s := range segments {
		args[i] = url.PathEscape(s)
	}

	return fmt.Sprintf(format, args...)
}

// /////////////////////////////////////////////////////////////////

// RequestOption is a functional option for [NewRequest].
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	body        any
	contentType *string
	headers     map[string][]string
	query       url.Values
}

// WithPayload sets the JSON-encoded request body.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = body

		return nil
	}
}

// WithContentType overrides the default "application/json" Content-Type header.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		opts.contentType = &contentType

		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers map[string][]string) RequestOption {
	return func(opts *requestOpts) error {
		opts.headers = headers

		return nil
	}
}

// WithQuery sets the query string. Empty values are kept; callers omit
// optional parameters by not adding them.
func WithQuery(query url.Values) RequestOption {
	return func(opts *requestOpts) error {
		opts.query = query

		return nil
	}
}
