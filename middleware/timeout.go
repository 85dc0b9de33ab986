package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Timeout returns middleware that enforces a per-call deadline. Streaming
// calls are exempt: a live status watch legitimately outlives any single
// request bound. When the deadline is exceeded the context is cancelled and
// the handler should return context.DeadlineExceeded.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		if d > 0 && !c.Streaming {
			logger.Debug("api call deadline set",
				slog.String("method", c.Method),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
