package api

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantacore/quanta/backoff"
	"github.com/quantacore/quanta/middleware"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Per-call deadlines come
// from contexts and middleware, so the default client carries no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithStreamFormat sets the wire format for live status frames.
// Supported values: "json" (default), "msgpack".
func WithStreamFormat(format string) Option {
	return func(c *Client) { c.format = format }
}

// WithRetry sets the retry budget and delay strategy for transient
// failures. A budget of 0 disables retries.
func WithRetry(maxRetries int, strategy backoff.Strategy) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if strategy != nil {
			c.retry = strategy
		}
	}
}

// WithRateLimit caps outgoing calls at rps requests per second with the
// given burst. Zero or negative rps removes the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCallTimeout bounds each unary API call. Live status streams are
// exempt. Zero leaves calls bounded only by their contexts.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithPollInterval sets the cadence of the HTTP status-polling fallback
// used when the live stream is unavailable.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMiddleware appends custom middleware to the built-in chain. Appended
// middleware runs innermost, just around the HTTP exchange.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(c *Client) { c.extraMW = append(c.extraMW, mw...) }
}

// WithTracing enables OpenTelemetry spans around every API call.
func WithTracing() Option {
	return func(c *Client) { c.tracing = true }
}

// WithMetrics enables OpenTelemetry metrics for every API call.
func WithMetrics() Option {
	return func(c *Client) { c.metrics = true }
}
