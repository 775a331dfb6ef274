// Package api is the catalog of Matrix client-server API endpoints.
//
// Each leaf package under api/r0 holds the types for one endpoint: a Request,
// a Response, and an Endpoint value satisfying
// [github.com/adamwoolhether/mxclient/endpoint.Endpoint]. Pass the Endpoint
// and a Request to [github.com/adamwoolhether/mxclient/client.Dispatch]:
//
//	resp, err := client.Dispatch(ctx, c, getalias.Endpoint, getalias.Request{
//		RoomAlias: "#example_room:example.com",
//	})
package api
