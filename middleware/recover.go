package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics below it in the
// chain. Panics are converted to errors and logged with a stack trace; a
// malformed server payload must never take down the caller's process.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("api call panicked",
					slog.String("method", c.Method),
					slog.String("job_id", c.JobID),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in %s call: %v", c.Method, r)
			}
		}()
		return next(ctx)
	}
}
