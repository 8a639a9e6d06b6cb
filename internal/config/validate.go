package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProxy(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProxy() error {
	if c.Proxy.Endpoint == "" || c.Proxy.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/llmproxy/config.toml"
		}
		return fmt.Errorf(`proxy.endpoint and proxy.api_key are required.
Set %s and %s, add them to a .env file in the working directory, or edit %s (create with 'llmproxy config init').

Example .env:
    %s=https://your-endpoint
    %s=your-api-key`, envEndpoint, envAPIKey, defaultPath, envEndpoint, envAPIKey)
	}
	parsed, err := url.Parse(c.Proxy.Endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("proxy.endpoint %q must be an absolute http(s) URL", c.Proxy.Endpoint)
	}
	if c.Proxy.TimeoutSeconds <= 0 {
		return errors.New("proxy.timeout_seconds must be positive")
	}
	if c.Proxy.PoolSize < 1 {
		return errors.New("proxy.pool_size must be at least 1")
	}
	if c.Proxy.RetryAttempts < 1 {
		return errors.New("proxy.retry_attempts must be at least 1")
	}
	if c.Proxy.RetryBaseDelayMS < 0 {
		return errors.New("proxy.retry_base_delay_ms must not be negative")
	}
	if c.Proxy.RetryMaxDelaySeconds < 0 {
		return errors.New("proxy.retry_max_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}
