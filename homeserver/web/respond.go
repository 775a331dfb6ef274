package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adamwoolhether/mxclient/endpoint"
)

// RespondJSON to an HTTP request, setting the status code and body if any.
func RespondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	SetStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

// RespondError writes err as a Matrix error body.
func RespondError(ctx context.Context, w http.ResponseWriter, err *Error) error {
	return RespondJSON(ctx, w, err.Status, err)
}

// Decode reads a JSON request body into val and validates it against its
// `validate` tags. Unknown fields are accepted. A malformed body is reported
// as M_NOT_JSON; validation failures are returned as endpoint.FieldErrors.
func Decode[T any](r *http.Request, val *T) error {
	if err := json.NewDecoder(r.Body).Decode(val); err != nil {
		return NewError(http.StatusBadRequest, endpoint.ErrCodeNotJSON, "Content not JSON: %v", err)
	}

	if err := endpoint.Validate(val); err != nil {
		return err
	}

	return nil
}

// AsFieldErrors returns the request validation failures carried by err.
func AsFieldErrors(err error) (endpoint.FieldErrors, bool) {
	return errors.AsType[endpoint.FieldErrors](err)
}
