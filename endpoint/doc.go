// Package endpoint defines the contract every Matrix client-server API
// operation satisfies, along with the helpers concrete endpoints use to
// build wire requests and decode wire responses.
//
// # Implementing an Endpoint
//
// An endpoint is a value with static [Metadata], a conversion from its typed
// request into an [http.Request], and a conversion from an [http.Response]
// into its typed response:
//
//	type whoAmI struct{}
//
//	func (whoAmI) Metadata() endpoint.Metadata { return metadata }
//
//	func (whoAmI) NewRequest(req Request) (*http.Request, error) {
//		return endpoint.NewRequest(metadata.Method, metadata.Path)
//	}
//
//	func (whoAmI) DecodeResponse(resp *http.Response) (*Response, error) {
//		return endpoint.DecodeJSON[Response](resp)
//	}
//
// The request produced by NewRequest carries only a path and query. The
// dispatcher in [github.com/adamwoolhether/mxclient/client] overlays them
// onto the homeserver origin and injects the access token when
// [Metadata.RequiresAuthentication] is set.
//
// # Errors
//
// Non-2xx responses decode into [*APIError], carrying the Matrix errcode:
//
//	if endpoint.IsAPIError(err, endpoint.ErrCodeForbidden) { ... }
//
// Typed requests are checked against their `validate` struct tags by
// [Validate]; failures are returned as [FieldErrors].
package endpoint
