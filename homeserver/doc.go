// Package homeserver is an in-memory Matrix homeserver implementing the
// subset of the r0 client-server API used by the client catalog: login,
// registration, whoami, sync, room creation and joining, alias lookup and
// message sending.
//
// It exists for tests, examples and local development. Nothing is
// persisted and there is no federation.
//
//	hs := homeserver.New("example.org")
//	srv := httptest.NewServer(hs)
//	defer srv.Close()
package homeserver
