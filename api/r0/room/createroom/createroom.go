// Package createroom implements POST /_matrix/client/r0/createRoom.
package createroom

import (
	"fmt"
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "create_room",
	Description:            "Create a new room.",
	Method:                 http.MethodPost,
	Path:                   "/_matrix/client/r0/createRoom",
	RequiresAuthentication: true,
	RateLimited:            false,
}

// Visibility controls whether the room is published in the room directory.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Preset is a convenience parameter for setting initial room state.
type Preset string

const (
	PresetPrivateChat        Preset = "private_chat"
	PresetPublicChat         Preset = "public_chat"
	PresetTrustedPrivateChat Preset = "trusted_private_chat"
)

// Request is the createRoom body. RoomAliasName is the localpart only.
type Request struct {
	Name          string     `json:"name,omitempty"`
	Topic         string     `json:"topic,omitempty"`
	RoomAliasName string     `json:"room_alias_name,omitempty" validate:"omitempty,excludesall=#:"`
	Visibility    Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Preset        Preset     `json:"preset,omitempty" validate:"omitempty,oneof=private_chat public_chat trusted_private_chat"`
	Invite        []string   `json:"invite,omitempty" validate:"omitempty,dive,mxid=@"`
	IsDirect      bool       `json:"is_direct,omitempty"`
}

type Response struct {
	RoomID string `json:"room_id"`
}

var Endpoint endpoint.Endpoint[Request, *Response] = createRoomEndpoint{}

type createRoomEndpoint struct{}

func (createRoomEndpoint) Metadata() endpoint.Metadata { return metadata }

func (createRoomEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating create room request: %w", err)
	}

	return endpoint.NewRequest(metadata.Method, metadata.Path, endpoint.WithPayload(req))
}

func (createRoomEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	return endpoint.DecodeJSON[Response](resp)
}
