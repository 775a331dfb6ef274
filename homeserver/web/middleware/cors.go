package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/adamwoolhether/mxclient/homeserver/web"
)

// CORS sets the cross-origin headers web clients need. Matrix homeservers
// allow every origin, so "*" is the usual argument. Preflight requests are
// answered here without reaching a route.
func CORS(allowedOrigins ...string) web.Middleware {
	originAllowed := CheckOriginFunc(allowedOrigins)

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				return web.RespondJSON(ctx, w, http.StatusNoContent, nil)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// CheckOriginFunc returns a matcher for the allowed origins. Entries may be
// exact origins, "*", or path.Match wildcards, and may be comma-separated.
func CheckOriginFunc(allowedOrigins []string) func(string) bool {
	var (
		allowed   = make(map[string]bool)
		wildcards []string
	)

	for _, entry := range allowedOrigins {
		for o := range strings.SplitSeq(entry, ",") {
			o = strings.TrimSpace(o)
			switch {
			case o == "*":
				allowed["*"] = true
			case strings.Contains(o, "*"):
				wildcards = append(wildcards, o)
			case o != "":
				allowed[o] = true
			}
		}
	}
	allowAll := allowed["*"]

	return func(origin string) bool {
		if allowAll || allowed[origin] {
			return true
		}
		for _, o := range wildcards {
			if matches, err := path.Match(o, origin); matches && err == nil {
				return true
			}
		}
		return false
	}
}
