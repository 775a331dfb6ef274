// Package joinroom implements POST /_matrix/client/r0/join/{roomIdOrAlias}.
package joinroom

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "join_room_by_id_or_alias",
	Description:            "Join a room using its ID or one of its aliases.",
	Method:                 http.MethodPost,
	Path:                   "/_matrix/client/r0/join/{roomIdOrAlias}",
	RequiresAuthentication: true,
	RateLimited:            true,
}

// Request names the room to join, either "!id:server" or "#alias:server".
type Request struct {
	RoomIDOrAlias string `json:"room_id_or_alias" validate:"required,mxid=!#"`
}

type Response struct {
	RoomID string `json:"room_id"`
}

var Endpoint endpoint.Endpoint[Request, *Response] = joinEndpoint{}

type joinEndpoint struct{}

func (joinEndpoint) Metadata() endpoint.Metadata { return metadata }

func (joinEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating join request: %w", err)
	}

	return endpoint.NewRequest(metadata.Method,
		endpoint.Path("/_matrix/client/r0/join/%s", req.RoomIDOrAlias),
		endpoint.WithPayload(struct{}{}),
	)
}

func (joinEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	return endpoint.DecodeJSON[Response](resp)
}
