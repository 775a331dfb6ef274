package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/adamwoolhether/mxclient/endpoint"
	"github.com/adamwoolhether/mxclient/homeserver/web"
)

// TokenLookup resolves an access token to its user. ok is false for
// unknown tokens.
type TokenLookup func(ctx context.Context, token string) (user web.User, ok bool)

// Authenticate rejects requests without a valid access token and stores the
// caller in the context for the handler. The token is read from the
// access_token query parameter or an "Authorization: Bearer" header.
func Authenticate(lookup TokenLookup) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			token := accessToken(r)
			if token == "" {
				return web.NewError(http.StatusUnauthorized, endpoint.ErrCodeMissingToken, "Missing access token")
			}

			user, ok := lookup(ctx, token)
			if !ok {
				return web.NewError(http.StatusUnauthorized, endpoint.ErrCodeUnknownToken, "Unrecognised access token")
			}

			return handler(web.SetUser(ctx, user), w, r)
		}
		return h
	}
	return m
}

func accessToken(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}
