// Package client is the session-aware request dispatcher of the Matrix
// client-server API, built on [net/http].
//
// # Building a Client
//
// Use [Build] with the homeserver origin and functional options:
//
//	c, err := client.Build("https://matrix.example.org",
//		client.WithTimeout(90*time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// A previously persisted [Session] is restored with [WithSession]. The
// client never reads or writes a persisted form itself.
//
// # Logging In
//
// [Client.LogIn], [Client.RegisterGuest] and [Client.RegisterUser] store the
// returned session in the client, so later authenticated calls pick it up:
//
//	session, err := c.LogIn(ctx, "@alice:example.org", "secret", "")
//
// # Calling Endpoints
//
// Any endpoint from the catalog under
// [github.com/adamwoolhether/mxclient/api] is called through [Dispatch]:
//
//	resp, err := client.Dispatch(ctx, c, whoami.Endpoint, whoami.Request{})
//
// Endpoints that require authentication fail with [ErrAuthenticationRequired]
// before any network I/O when no session is held. Otherwise the access token
// is appended to the request URL as the `access_token` query parameter.
//
// # Syncing
//
// [Client.Sync] returns an unbounded iterator over sync responses, threading
// each response's next_batch into the following request:
//
//	for resp, err := range c.Sync(ctx, client.SyncOptions{SuppressPresence: true}) {
//		if err != nil {
//			return err
//		}
//		handle(resp)
//	}
//
// # Sharing
//
// A *Client is safe for concurrent use. [Client.Clone] returns another
// handle onto the same homeserver, transport and session.
package client
