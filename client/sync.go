package client

import (
	"context"
	"iter"
	"sync"

	"github.com/adamwoolhether/mxclient/api/r0/sync/syncevents"
)

// SyncOptions configures [Client.Sync].
type SyncOptions struct {
	// Filter is sent with every request. Nil leaves filtering to the server.
	Filter *syncevents.Filter

	// Since is the cursor to resume from, typically a next_batch persisted by
	// an earlier run. Empty requests an initial sync, which returns the full
	// state of every joined room and can be large and slow.
	Since string

	// SuppressPresence sends set_presence=offline with every request so that
	// syncing does not mark the user online. When false no presence directive
	// is sent and the server default applies.
	SuppressPresence bool
}

// Sync returns an unbounded sequence of sync responses. Each request carries
// the next_batch of the previous response as its since parameter.
//
// The sequence ends when the consumer stops ranging or after yielding the
// first error, which is returned unchanged from Dispatch. Cancelling ctx
// aborts the in-flight request. Requests are strictly sequential; ranging
// over the sequence again continues from the last cursor rather than
// replaying from opts.Since.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) iter.Seq2[*syncevents.Response, error] {
	var (
		mu    sync.Mutex
		since = opts.Since
	)

	var presence syncevents.SetPresence
	if opts.SuppressPresence {
		presence = syncevents.PresenceOffline
	}

	next := func() (*syncevents.Response, error) {
		mu.Lock()
		defer mu.Unlock()

		resp, err := Dispatch(ctx, c, syncevents.Endpoint, syncevents.Request{
			Filter:      opts.Filter,
			Since:       since,
			SetPresence: presence,
		})
		if err != nil {
			return nil, err
		}

		c.logger.DebugContext(ctx, "sync batch received", "since", since, "next_batch", resp.NextBatch)
		since = resp.NextBatch

		return resp, nil
	}

	return func(yield func(*syncevents.Response, error) bool) {
		for {
			resp, err := next()
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(resp, nil) {
				return
			}
		}
	}
}
