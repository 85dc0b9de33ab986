// Package middleware provides composable middleware for API calls.
//
// A [Middleware] is a function that wraps one API call. Middleware are
// composed into a chain using [Chain] and applied around each call the
// client makes. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs method, path, duration, and outcome of each call
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the call context after a configured duration
//   - [Tracing] — wraps each call in an OpenTelemetry span
//   - [Metrics] — records per-call duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, c *middleware.Call, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
