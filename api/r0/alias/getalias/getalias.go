// Package getalias implements GET /_matrix/client/r0/directory/room/{roomAlias}.
package getalias

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "get_alias",
	Description:            "Resolve a room alias to a room ID.",
	Method:                 http.MethodGet,
	Path:                   "/_matrix/client/r0/directory/room/{roomAlias}",
	RequiresAuthentication: false,
	RateLimited:            false,
}

// Request names the alias to resolve, e.g. "#example_room:example.com".
type Request struct {
	RoomAlias string `json:"room_alias" validate:"required,mxid=#"`
}

type Response struct {
	RoomID  string   `json:"room_id"`
	Servers []string `json:"servers"`
}

var Endpoint endpoint.Endpoint[Request, *Response] = getAliasEndpoint{}

type getAliasEndpoint struct{}

func (getAliasEndpoint) Metadata() endpoint.Metadata { return metadata }

func (getAliasEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating alias request: %w", err)
	}

	return endpoint.NewRequest(metadata.Method, endpoint.Path("/_matrix/client/r0/directory/room/%s", req.RoomAlias))
}

func (getAliasEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	return endpoint.DecodeJSON[Response](resp)
}
