// Package whoami implements GET /_matrix/client/r0/account/whoami.
package whoami

import (
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "whoami",
	Description:            "Get information about the owner of an access token.",
	Method:                 http.MethodGet,
	Path:                   "/_matrix/client/r0/account/whoami",
	RequiresAuthentication: true,
	RateLimited:            true,
}

type Request struct{}

type Response struct {
	UserID string `json:"user_id"`
}

var Endpoint endpoint.Endpoint[Request, *Response] = whoAmIEndpoint{}

type whoAmIEndpoint struct{}

func (whoAmIEndpoint) Metadata() endpoint.Metadata { return metadata }

func (whoAmIEndpoint) NewRequest(Request) (*http.Request, error) {
	return endpoint.NewRequest(metadata.Method, metadata.Path)
}

func (whoAmIEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	return endpoint.DecodeJSON[Response](resp)
}
