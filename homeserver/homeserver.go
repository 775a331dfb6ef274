package homeserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adamwoolhether/mxclient/homeserver/web"
	"github.com/adamwoolhether/mxclient/homeserver/web/middleware"
)

// Homeserver is an http.Handler serving the Matrix client-server API.
type Homeserver struct {
	app            *web.App
	state          *state
	logger         *slog.Logger
	maxSyncTimeout time.Duration
	done           chan struct{}
	closeOnce      sync.Once
}

// New creates a Homeserver for serverName, the domain part of every user
// ID, room ID and alias it issues.
func New(serverName string, optFns ...Option) *Homeserver {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.maxSyncTimeout == 0 {
		opts.maxSyncTimeout = 30 * time.Second
	}
	if len(opts.corsOrigins) == 0 {
		opts.corsOrigins = []string{"*"}
	}

	appOpts := []web.Option{
		web.WithLogger(opts.logger),
		web.WithMiddleware(
			middleware.Panics(),
			middleware.Errors(opts.logger),
			middleware.Logger(opts.logger),
			middleware.CORS(opts.corsOrigins...),
		),
	}
	if opts.tracer != nil {
		appOpts = append(appOpts, web.WithTracer(opts.tracer))
	}

	hs := &Homeserver{
		app:            web.New(appOpts...),
		state:          newState(serverName),
		logger:         opts.logger,
		maxSyncTimeout: opts.maxSyncTimeout,
		done:           make(chan struct{}),
	}
	hs.routes()

	return hs
}

func (hs *Homeserver) routes() {
	const prefix = "/_matrix/client/r0"

	auth := middleware.Authenticate(func(_ context.Context, token string) (web.User, bool) {
		return hs.state.lookup(token)
	})

	hs.app.Get("/_matrix/client/versions", hs.versions)

	hs.app.Post(prefix+"/login", hs.login)
	hs.app.Post(prefix+"/register", hs.register)
	hs.app.Get(prefix+"/account/whoami", hs.whoami, auth)
	hs.app.Get(prefix+"/sync", hs.sync, auth)
	hs.app.Post(prefix+"/createRoom", hs.createRoom, auth)
	hs.app.Post(prefix+"/join/{roomIdOrAlias}", hs.joinRoom, auth)
	hs.app.Get(prefix+"/directory/room/{roomAlias}", hs.getAlias)
	hs.app.Put(prefix+"/rooms/{roomId}/send/{eventType}/{txnId}", hs.sendMessage, auth)

	hs.app.Fallback(hs.unrecognized)
}

// ServeHTTP implements http.Handler.
func (hs *Homeserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hs.app.ServeHTTP(w, r)
}

// ServerName returns the domain the homeserver issues identifiers under.
func (hs *Homeserver) ServerName() string {
	return hs.state.serverName
}

// Shutdown releases syncs that are waiting for events so the HTTP server
// can drain. It is safe to call more than once.
func (hs *Homeserver) Shutdown(context.Context) error {
	hs.closeOnce.Do(func() {
		close(hs.done)
	})

	return nil
}
