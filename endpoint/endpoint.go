package endpoint

import (
	"net/http"
)

// Metadata describes an endpoint. It is static per endpoint type.
type Metadata struct {
	// Name is a short identifier, used in logs, spans and errors.
	Name string
	// Description is a human-readable summary of the operation.
	Description string
	// Method is the HTTP method.
	Method string
	// Path is the path template, e.g. "/_matrix/client/r0/directory/room/{roomAlias}".
	Path string
	// RequiresAuthentication marks endpoints that need an access token.
	RequiresAuthentication bool
	// RateLimited marks endpoints the homeserver may rate limit.
	RateLimited bool
}

// Endpoint is implemented once per API operation.
//
// NewRequest converts a typed request into a transport-level request whose
// URL holds only the resolved path and query. DecodeResponse converts a
// transport-level response into the typed response, or an error when the
// body does not conform or the server reported a failure. DecodeResponse
// must not close the body; the caller does.
type Endpoint[Req, Resp any] interface {
	Metadata() Metadata
	NewRequest(req Req) (*http.Request, error)
	DecodeResponse(resp *http.Response) (Resp, error)
}
