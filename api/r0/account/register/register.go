// Package register implements POST /_matrix/client/r0/register.
package register

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "register",
	Description:            "Register an account on this homeserver.",
	Method:                 http.MethodPost,
	Path:                   "/_matrix/client/r0/register",
	RequiresAuthentication: false,
	RateLimited:            true,
}

// RegistrationKind selects between guest and full user accounts.
type RegistrationKind string

const (
	KindGuest RegistrationKind = "guest"
	KindUser  RegistrationKind = "user"
)

// AuthData is the user-interactive authentication stage, if any.
type AuthData struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
}

// Request is the registration request. Kind travels in the query string,
// everything else in the body.
type Request struct {
	Kind                     RegistrationKind `json:"-" validate:"omitempty,oneof=guest user"`
	Auth                     *AuthData        `json:"auth,omitempty"`
	BindEmail                *bool            `json:"bind_email,omitempty"`
	DeviceID                 string           `json:"device_id,omitempty"`
	InitialDeviceDisplayName string           `json:"initial_device_display_name,omitempty"`
	Password                 string           `json:"password,omitempty" validate:"required_if=Kind user"`
	Username                 string           `json:"username,omitempty"`
}

// Response carries the credentials of the new account.
type Response struct {
	AccessToken string `json:"access_token"`
	HomeServer  string `json:"home_server,omitempty"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
}

// Endpoint is the registration endpoint.
var Endpoint endpoint.Endpoint[Request, *Response] = registerEndpoint{}

type registerEndpoint struct{}

func (registerEndpoint) Metadata() endpoint.Metadata { return metadata }

func (registerEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating register request: %w", err)
	}

	var query url.Values
	if req.Kind != "" {
		query = url.Values{"kind": {string(req.Kind)}}
	}

	return endpoint.NewRequest(metadata.Method, metadata.Path,
		endpoint.WithQuery(query),
		endpoint.WithPayload(req),
	)
}

func (registerEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	out, err := endpoint.DecodeJSON[Response](resp)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.UserID == "" {
		return nil, errors.New("register response missing access_token or user_id")
	}

	return out, nil
}
