// Package middleware provides composable middleware for API calls.
// Middleware wraps call execution synchronously and can modify it
// (recover from panics, enforce deadlines, log, add tracing, etc.).
package middleware

import (
	"context"
)

// Call describes one API call as seen by middleware.
type Call struct {
	// Method is the logical operation name, e.g. "query status".
	Method string
	// Path is the route template the call uses, e.g. "/v1/jobs/{id}/status".
	// Templates keep metric and span attributes low-cardinality.
	Path string
	// JobID is the job the call concerns; empty for account-level calls.
	JobID string
	// Streaming marks long-lived calls such as live status watches.
	// Per-call deadlines do not apply to them.
	Streaming bool
}

// Handler is the terminal function that performs the call.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the call being made, and the next
// handler to invoke. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, c *Call, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, c, prev)
			}
		}
		return h(ctx)
	}
}
