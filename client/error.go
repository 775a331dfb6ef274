package client

import (
	"errors"
	"fmt"
)

// Dispatch failure kinds. Every error returned by Dispatch is an *Error
// wrapping exactly one of them.
var (
	// ErrAuthenticationRequired is returned when an authenticated endpoint
	// is called with no session. No request is sent.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrRequestConstruction is returned when the typed request cannot be
	// converted into an HTTP request.
	ErrRequestConstruction = errors.New("request construction failed")
	// ErrURLConstruction is returned when the resolved request URL is malformed.
	ErrURLConstruction = errors.New("url construction failed")
	// ErrTransport is returned when the HTTP transport fails.
	ErrTransport = errors.New("transport failed")
	// ErrResponseDecoding is returned when the response cannot be decoded,
	// including error responses from the homeserver.
	ErrResponseDecoding = errors.New("response decoding failed")
)

var (
	// ErrInvalidHomeserver is returned by Build for an unusable homeserver URL.
	ErrInvalidHomeserver = errors.New("invalid homeserver url")
	// ErrTLSNeedsHTTPTransport is returned by Build when WithTLSConfig is
	// combined with a transport that is not an *http.Transport.
	ErrTLSNeedsHTTPTransport = errors.New("tls config requires an *http.Transport")
)

// Error is a failed dispatch. Use errors.Is with the kind sentinels, and
// errors.As to reach the cause, e.g. an *endpoint.APIError.
type Error struct {
	Kind     error
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
