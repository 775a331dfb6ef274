package homeserver

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Homeserver.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	maxSyncTimeout time.Duration
	corsOrigins    []string
}

// WithLogger sets the request and error logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// WithTracer records a span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

// WithMaxSyncTimeout caps the long-poll timeout a client may request.
// Default is 30s.
func WithMaxSyncTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.maxSyncTimeout = d
	}
}

// WithCORSOrigins restricts the origins allowed to call the API from a
// browser. Default is "*".
func WithCORSOrigins(origins ...string) Option {
	return func(opts *options) {
		opts.corsOrigins = origins
	}
}
