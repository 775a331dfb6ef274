package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/adamwoolhether/mxclient/homeserver/web"
)

// Panics turns a panicking handler into an internal Matrix error so the
// Errors middleware renders it as M_UNKNOWN. The recovered value and stack
// stay server side.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = web.NewInternal(fmt.Errorf("PANIC [%v] %s %s TRACE[%s]", rec, r.Method, r.URL.Path, debug.Stack()))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
