package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds connection setup and the wait for response headers
	// on each attempt.
	DefaultTimeout        = 118 * time.Second
	DefaultPoolSize       = 10
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 120 * time.Second
)

// Config captures the connection settings for the proxy service. NewClient
// copies it, so later changes to the caller's value have no effect.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	// PoolSize bounds the idle connections kept for reuse.
	PoolSize       int
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func (c Config) normalized() Config {
	out := Config{
		Endpoint:       strings.TrimSpace(c.Endpoint),
		APIKey:         strings.TrimSpace(c.APIKey),
		Timeout:        c.Timeout,
		PoolSize:       c.PoolSize,
		RetryAttempts:  c.RetryAttempts,
		RetryBaseDelay: c.RetryBaseDelay,
		RetryMaxDelay:  c.RetryMaxDelay,
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.PoolSize <= 0 {
		out.PoolSize = DefaultPoolSize
	}
	if out.RetryAttempts <= 0 {
		out.RetryAttempts = DefaultRetryAttempts
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if out.RetryMaxDelay <= 0 {
		out.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return out
}

// Validate reports whether the configuration can be used to build a client.
func (c Config) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrConfiguration)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint %q: %v", ErrConfiguration, endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: endpoint %q must use http or https", ErrConfiguration, endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: endpoint %q has no host", ErrConfiguration, endpoint)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", ErrConfiguration)
	}
	return nil
}
