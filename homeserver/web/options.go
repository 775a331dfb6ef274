package web

import (
	"log/slog"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type Option func(*options)

type options struct {
	tracer   trace.Tracer
	logger   *slog.Logger
	globalMW []Middleware
	mw       []Middleware
}

type ordered struct {
	priority int
	fn       Middleware
}

// WithMiddleware sorts the given middleware by function name and splits it
// into global and route stacks. CORS runs on every request, including
// unrouted preflights. Logger, Errors, any custom middleware and Panics run
// per route in that order.
func WithMiddleware(mw ...Middleware) Option {
	var global, route []ordered

	for _, m := range mw {
		switch name(m) {
		case "CORS":
			global = append(global, ordered{priority: 1, fn: m})
		case "Logger":
			route = append(route, ordered{priority: 3, fn: m})
		case "Errors":
			route = append(route, ordered{priority: 4, fn: m})
		case "Panics":
			route = append(route, ordered{priority: 100, fn: m})
		default:
			route = append(route, ordered{priority: 5, fn: m})
		}
	}

	return func(opts *options) {
		opts.globalMW = sorted(global)
		opts.mw = sorted(route)
	}
}

// WithTracer injects the given tracer into the App.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

// WithLogger sets the logger used by the App for internal errors.
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

func sorted(mw []ordered) []Middleware {
	slices.SortStableFunc(mw, func(a, b ordered) int {
		return a.priority - b.priority
	})

	out := make([]Middleware, len(mw))
	for i, v := range mw {
		out[i] = v.fn
	}

	return out
}

func name(mw Middleware) string {
	return constructorName(runtime.FuncForPC(reflect.ValueOf(mw).Pointer()).Name())
}

// constructorName returns the function that built a middleware closure,
// the segment right before the first "funcN". Inlining prefixes the caller,
// so "middleware.Panics.func1" and "homeserver.New.Panics.func1" both
// yield "Panics".
func constructorName(fnName string) string {
	if i := strings.LastIndex(fnName, "/"); i >= 0 {
		fnName = fnName[i+1:]
	}

	parts := strings.Split(fnName, ".")
	for i, part := range parts {
		if i > 0 && strings.HasPrefix(part, "func") {
			return parts[i-1]
		}
	}

	return parts[len(parts)-1]
}
