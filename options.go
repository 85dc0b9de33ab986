package quanta

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/quantacore/quanta/middleware"
)

// Option configures Open and LoadConfig.
type Option func(*settings) error

// settings collects everything gathered from options before the
// configuration sources are resolved.
type settings struct {
	configPath string
	overrides  map[string]any

	logger     *slog.Logger
	httpClient *http.Client
	mw         []middleware.Middleware
	tracing    bool
	metrics    bool
}

func newSettings() *settings {
	return &settings{
		configPath: DefaultConfigPath(),
		overrides:  map[string]any{},
		logger:     slog.Default(),
	}
}

// accountName returns the explicitly requested account, if any. Options
// win over the environment; the account file's "default" entry is
// consulted only when neither names one.
func (s *settings) accountName() string {
	if v, ok := s.overrides["account"]; ok {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}

	return os.Getenv("QUANTA_ACCOUNT")
}

// ──────────────────────────────────────────────────
// Configuration options
// ──────────────────────────────────────────────────

// WithConfigFile points account resolution at an alternate account file.
func WithConfigFile(path string) Option {
	return func(s *settings) error {
		s.configPath = path

		return nil
	}
}

// WithEndpoint overrides the service base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) error {
		if endpoint == "" {
			return errors.New("quanta: endpoint must not be empty")
		}
		s.overrides["endpoint"] = endpoint

		return nil
	}
}

// WithToken sets the API token directly, bypassing the account file and
// environment.
func WithToken(token string) Option {
	return func(s *settings) error {
		s.overrides["token"] = token

		return nil
	}
}

// WithAccount selects a named entry from the account file.
func WithAccount(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return errors.New("quanta: account name must not be empty")
		}
		s.overrides["account"] = name

		return nil
	}
}

// WithTimeout bounds each unary API call. Zero disables the per-call
// bound.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return errors.New("quanta: timeout must not be negative")
		}
		s.overrides["timeout"] = d

		return nil
	}
}

// WithMaxRetries sets the retry budget for transient API failures.
func WithMaxRetries(n int) Option {
	return func(s *settings) error {
		if n < 0 {
			return errors.New("quanta: max retries must not be negative")
		}
		s.overrides["max_retries"] = n

		return nil
	}
}

// WithRateLimit caps outgoing API calls per second. Zero removes the
// cap.
func WithRateLimit(rps float64) Option {
	return func(s *settings) error {
		if rps < 0 {
			return errors.New("quanta: rate limit must not be negative")
		}
		s.overrides["rate_limit"] = rps

		return nil
	}
}

// WithInsecure permits plain-HTTP endpoints and disables TLS certificate
// verification. Meant for local development against test servers.
func WithInsecure() Option {
	return func(s *settings) error {
		s.overrides["insecure"] = true

		return nil
	}
}

// WithStreamFormat sets the live status stream wire format, "json" or
// "msgpack".
func WithStreamFormat(format string) Option {
	return func(s *settings) error {
		s.overrides["stream_format"] = format

		return nil
	}
}

// ──────────────────────────────────────────────────
// Service options
// ──────────────────────────────────────────────────

// WithLogger sets the structured logger for the Service and the handles
// it mints.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) error {
		if l == nil {
			return errors.New("quanta: logger must not be nil")
		}
		s.logger = l

		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for every API call.
// Takes precedence over the transport Insecure would otherwise build.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) error {
		if hc == nil {
			return errors.New("quanta: http client must not be nil")
		}
		s.httpClient = hc

		return nil
	}
}

// WithMiddleware appends custom middleware to every API call, innermost
// last.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(s *settings) error {
		s.mw = append(s.mw, mw...)

		return nil
	}
}

// WithTracing wraps every API call in an OpenTelemetry span.
func WithTracing() Option {
	return func(s *settings) error {
		s.tracing = true

		return nil
	}
}

// WithMetrics records OpenTelemetry metrics for every API call.
func WithMetrics() Option {
	return func(s *settings) error {
		s.metrics = true

		return nil
	}
}
