package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrBodySize caps the amount of response body read when building an
// APIError, preventing unbounded memory use on a large error payload.
const maxErrBodySize = 4 << 10 // 4KB

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeBadJSON       = "M_BAD_JSON"
	ErrCodeNotJSON       = "M_NOT_JSON"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeUserInUse     = "M_USER_IN_USE"
	ErrCodeInvalidUser   = "M_INVALID_USERNAME"
	ErrCodeRoomInUse     = "M_ROOM_IN_USE"
	ErrCodeGuestAccess   = "M_GUEST_ACCESS_FORBIDDEN"
	ErrCodeMissingParam  = "M_MISSING_PARAM"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
)

var (
	// ErrUnexpectedStatusCode is wrapped by an [APIError] whose body is not a
	// Matrix error object.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is wrapped by an [APIError] with status 401 or 403.
	ErrAuthFailure = errors.New("auth failure")
)

// APIError is a failure reported by the homeserver. Callers can use
// errors.As to extract it:
//
//	var apiErr *endpoint.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == endpoint.ErrCodeNotFound { ... }
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
	// Code is the Matrix errcode, empty when the body was not a Matrix error.
	Code string `json:"errcode"`
	// Message is the server's human-readable description.
	Message string `json:"error"`
	// RetryAfterMs is set with M_LIMIT_EXCEEDED.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
	// Body is the raw (truncated) response body.
	Body string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%v: %d, body: %s", ErrUnexpectedStatusCode, e.StatusCode, e.Body)
	}

	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.Code == "" {
		errs = append(errs, ErrUnexpectedStatusCode)
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		errs = append(errs, ErrAuthFailure)
	}

	return errs
}

// IsAPIError reports whether err wraps an *APIError with the given errcode.
func IsAPIError(err error, code string) bool {
	if apiErr, ok := errors.AsType[*APIError](err); ok {
		return apiErr.Code == code
	}

	return false
}

// DecodeJSON decodes a 2xx response body into a new T. Any other status is
// returned as an *APIError.
func DecodeJSON[T any](resp *http.Response) (*T, error) {
	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	return &v, nil
}

// CheckStatus returns nil for 2xx responses and an *APIError otherwise.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}

	apiErr := APIError{StatusCode: resp.StatusCode, Body: string(b)}
	if jsonErr := json.Unmarshal(b, &apiErr); jsonErr != nil {
		// Not a Matrix error object; keep the raw body only.
		apiErr.Code, apiErr.Message, apiErr.RetryAfterMs = "", "", 0
	}
	apiErr.StatusCode = resp.StatusCode

	return &apiErr
}
