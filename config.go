package quanta

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/quantacore/quanta/api"
)

// Config is the resolved account configuration behind a Service.
//
// Configuration is layered from four sources, highest precedence first:
// explicit options (WithToken, WithEndpoint, ...), QUANTA_* environment
// variables, the selected account in the account file, and built-in
// defaults.
type Config struct {
	// Endpoint is the service base URL.
	Endpoint string `koanf:"endpoint"`

	// Token authenticates every API call.
	Token string `koanf:"token"`

	// Account names the account-file entry the credentials came from.
	// Empty when the configuration was assembled without the file.
	Account string `koanf:"account"`

	// Timeout bounds each unary API call. Zero leaves calls bounded only
	// by their contexts.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the retry budget for transient API failures.
	MaxRetries int `koanf:"max_retries"`

	// RateLimit caps outgoing API calls per second. Zero means uncapped.
	RateLimit float64 `koanf:"rate_limit"`

	// Insecure permits plain-HTTP endpoints beyond loopback and disables
	// TLS certificate verification. Meant for local development only.
	Insecure bool `koanf:"insecure"`

	// StreamFormat is the live status stream wire format, "json" or
	// "msgpack".
	StreamFormat string `koanf:"stream_format"`
}

// DefaultConfig returns the configuration in effect before any file,
// environment, or option overrides.
func DefaultConfig() Config {
	return Config{
		Endpoint:     "https://api.quantacore.dev",
		MaxRetries:   api.DefaultMaxRetries,
		StreamFormat: api.FormatJSON,
	}
}

// DefaultConfigPath returns ~/.quanta/config.json, or the empty string
// when the home directory cannot be resolved.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".quanta", "config.json")
}

// LoadConfig resolves the effective configuration without opening a
// Service. An empty path means DefaultConfigPath; a missing file is not
// an error. Useful for inspecting what Open would connect with.
func LoadConfig(path string, opts ...Option) (Config, error) {
	s := newSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return Config{}, err
		}
	}
	if path != "" {
		s.configPath = path
	}

	return resolveConfig(s)
}

// resolveConfig layers defaults, the account file, the environment, and
// option overrides into one validated Config.
func resolveConfig(s *settings) (Config, error) {
	k := koanf.New(".")

	def := DefaultConfig()
	defaults := map[string]any{
		"endpoint":      def.Endpoint,
		"timeout":       def.Timeout,
		"max_retries":   def.MaxRetries,
		"rate_limit":    def.RateLimit,
		"insecure":      def.Insecure,
		"stream_format": def.StreamFormat,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("quanta: load defaults: %w", err)
	}

	fileK, err := loadAccountFile(s.configPath)
	if err != nil {
		return Config{}, err
	}

	account := s.accountName()
	if account == "" && fileK != nil {
		account = fileK.String("default")
	}
	if account != "" {
		if fileK == nil || !fileK.Exists("accounts."+account) {
			return Config{}, fmt.Errorf("%w: %q", ErrUnknownAccount, account)
		}
		if err := k.Merge(fileK.Cut("accounts." + account)); err != nil {
			return Config{}, fmt.Errorf("quanta: merge account %q: %w", account, err)
		}
	}

	if err := k.Load(env.Provider("QUANTA_", ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, "QUANTA_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("quanta: load environment: %w", err)
	}

	if len(s.overrides) > 0 {
		if err := k.Load(confmap.Provider(s.overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("quanta: apply options: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("quanta: unmarshal config: %w", err)
	}
	cfg.Account = account

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadAccountFile reads the account file when one exists at path. A
// missing file, or an empty path, yields a nil koanf without error.
func loadAccountFile(path string) (*koanf.Koanf, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("quanta: stat config file: %w", err)
	}

	fileK := koanf.New(".")
	if err := fileK.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("quanta: parse config file %s: %w", path, err)
	}

	return fileK, nil
}

// Validate checks the resolved configuration. LoadConfig and Open run it
// automatically; it is exported for callers that assemble a Config by
// hand.
func (c Config) Validate() error {
	if c.Token == "" {
		return ErrNoToken
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEndpoint, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadEndpoint, c.Endpoint)
	}
	switch u.Scheme {
	case "https":
	case "http":
		// Plain HTTP is fine against loopback, where local test servers
		// live. Anything beyond that needs the explicit opt-in.
		if !c.Insecure && !isLoopback(u.Host) {
			return fmt.Errorf("%w: %q", ErrInsecureEndpoint, c.Endpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrBadEndpoint, c.Endpoint)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("quanta: max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("quanta: rate limit must not be negative, got %v", c.RateLimit)
	}
	if _, err := api.GetCodec(c.StreamFormat); err != nil {
		return fmt.Errorf("quanta: %w", err)
	}

	return nil
}

// isLoopback reports whether host, possibly of the form host:port, names
// a loopback address.
func isLoopback(host string) bool {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		h = host
	}
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)

	return ip != nil && ip.IsLoopback()
}
