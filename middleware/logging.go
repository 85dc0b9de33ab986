package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs call start and completion. Starts
// and successes log at debug level; a client polling for status would
// otherwise drown the caller's logs.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		logger.Debug("api call started",
			slog.String("method", c.Method),
			slog.String("path", c.Path),
			slog.String("job_id", c.JobID),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("api call failed",
				slog.String("method", c.Method),
				slog.String("job_id", c.JobID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("api call completed",
				slog.String("method", c.Method),
				slog.String("job_id", c.JobID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
