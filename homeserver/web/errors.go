package web

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/adamwoolhether/mxclient/endpoint"
)

// Error is a Matrix error response. It renders as
// {"errcode": Code, "error": Message}.
type Error struct {
	Status       int    `json:"-"`
	Code         string `json:"errcode"`
	Message      string `json:"error"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
	FuncName     string `json:"-"`
	FileName     string `json:"-"`
	InnerErr     bool   `json:"-"`
}

// NewError constructs a client-facing error with the given status and
// Matrix errcode.
func NewError(status int, code, format string, args ...any) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Status:   status,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// NewInternal wraps an error that must not be shown to clients.
func NewInternal(err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Status:   http.StatusInternalServerError,
		Code:     endpoint.ErrCodeUnknown,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
		InnerErr: true,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInternal returns true if the error is internal.
func (e *Error) IsInternal() bool {
	return e.InnerErr
}
