package cloudvision

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config holds Cloud Vision client configuration.
type Config struct {
	// Credentials, in order of precedence. With none set the client falls
	// back to Application Default Credentials.
	APIKey          string
	CredentialsFile string

	// Endpoint overrides the API base URL (tests, regional endpoints).
	Endpoint string

	// MaxResults bounds the number of labels requested (default 10).
	MaxResults int64

	// Lowercase normalizes descriptions ("Banana" -> "banana") so labels
	// compare equal across backends.
	Lowercase bool

	// JPEGQuality is used when a cropped frame is re-encoded.
	JPEGQuality int

	Timeout    time.Duration
	HTTPClient *http.Client // Base transport, default internal/httpc.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithAPIKey authenticates with an API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithCredentialsFile authenticates with a service account JSON file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) { c.CredentialsFile = path }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithMaxResults sets how many labels are requested.
func WithMaxResults(n int64) Option {
	return func(c *Config) { c.MaxResults = n }
}

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithTimeout bounds a single annotate request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxResults:  10,
		Lowercase:   true,
		JPEGQuality: 90,
		Timeout:     5 * time.Second,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("cloudvision: max results must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("cloudvision: jpeg quality must be 1-100, got %d", c.JPEGQuality)
	}
	return nil
}
