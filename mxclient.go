// Package mxclient exposes the Matrix client builder.
package mxclient

import (
	"github.com/adamwoolhether/mxclient/client"
)

// NewClient instantiates a new *client.Client for the homeserver at
// homeserverURL with the provided options. If not specified, the default
// http.Client and http.Transport are used.
func NewClient(homeserverURL string, opts ...client.Option) (*client.Client, error) {
	return client.Build(homeserverURL, opts...)
}
