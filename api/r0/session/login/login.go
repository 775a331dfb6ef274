// Package login implements POST /_matrix/client/r0/login.
package login

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

var metadata = endpoint.Metadata{
	Name:                   "login",
	Description:            "Login to the homeserver.",
	Method:                 http.MethodPost,
	Path:                   "/_matrix/client/r0/login",
	RequiresAuthentication: false,
	RateLimited:            true,
}

// LoginType is the authentication mechanism.
type LoginType string

// LoginTypePassword is the only login type this client issues.
const LoginTypePassword LoginType = "m.login.password"

// Medium is the kind of third-party identifier in Address.
type Medium string

// MediumEmail is an email address.
const MediumEmail Medium = "email"

// Request is the login request body.
type Request struct {
	Type                     LoginType `json:"type" validate:"required,oneof=m.login.password"`
	User                     string    `json:"user,omitempty" validate:"required_without=Address"`
	Password                 string    `json:"password" validate:"required"`
	Medium                   Medium    `json:"medium,omitempty" validate:"required_with=Address"`
	Address                  string    `json:"address,omitempty"`
	DeviceID                 string    `json:"device_id,omitempty"`
	InitialDeviceDisplayName string    `json:"initial_device_display_name,omitempty"`
}

// Response carries the credentials issued by the homeserver.
type Response struct {
	AccessToken string `json:"access_token"`
	HomeServer  string `json:"home_server,omitempty"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
}

// Endpoint is the login endpoint.
var Endpoint endpoint.Endpoint[Request, *Response] = loginEndpoint{}

type loginEndpoint struct{}

func (loginEndpoint) Metadata() endpoint.Metadata { return metadata }

func (loginEndpoint) NewRequest(req Request) (*http.Request, error) {
	if err := endpoint.Validate(req); err != nil {
		return nil, fmt.Errorf("validating login request: %w", err)
	}

	return endpoint.NewRequest(metadata.Method, metadata.Path, endpoint.WithPayload(req))
}

func (loginEndpoint) DecodeResponse(resp *http.Response) (*Response, error) {
	out, err := endpoint.DecodeJSON[Response](resp)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.UserID == "" {
		return nil, errors.New("login response missing access_token or user_id")
	}

	return out, nil
}
