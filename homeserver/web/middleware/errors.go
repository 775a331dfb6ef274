package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/adamwoolhether/mxclient/endpoint"
	"github.com/adamwoolhether/mxclient/homeserver/web"
)

// Errors renders errors coming out of the call chain as Matrix error bodies.
// Validation failures become M_BAD_JSON; anything unrecognized becomes an
// opaque M_UNKNOWN.
func Errors(log *slog.Logger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			if fieldErrs, ok := web.AsFieldErrors(err); ok {
				return web.RespondError(ctx, w, web.NewError(http.StatusBadRequest, endpoint.ErrCodeBadJSON, "%s", fieldErrs.Error()))
			}

			appErr, ok := errors.AsType[*web.Error](err)
			if !ok { // obscure errors that escaped the handlers.
				appErr = web.NewInternal(err)
			}

			reqLog := log.With("trace_id", web.GetValues(ctx).TraceID)
			if appErr.IsInternal() {
				reqLog.Error(err.Error(), "source_err_file", path.Base(appErr.FileName), "source_err_func", path.Base(appErr.FuncName))
				appErr.Message = http.StatusText(appErr.Status)
			} else {
				reqLog.Info("request rejected", "errcode", appErr.Code, "error", appErr.Message, "source_err_func", path.Base(appErr.FuncName))
			}

			return web.RespondError(ctx, w, appErr)
		}

		return h
	}

	return m
}
