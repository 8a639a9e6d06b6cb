package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envEndpoint       = "LLMPROXY_ENDPOINT"
	envAPIKey         = "LLMPROXY_API_KEY"
	envTimeoutSeconds = "LLMPROXY_TIMEOUT_SECONDS"
)

type lookupFunc func(key string) (string, bool)

func (c *Config) normalize() error {
	lookup, err := c.loadEnvFile()
	if err != nil {
		return err
	}
	if err := c.normalizeProxy(lookup); err != nil {
		return err
	}
	c.normalizeSession()
	return c.normalizeLogging()
}

// loadEnvFile reads env_file and returns a lookup that prefers the process
// environment. A missing default .env is not an error; a missing explicitly
// configured file is.
func (c *Config) loadEnvFile() (lookupFunc, error) {
	values := map[string]string{}
	envFile := strings.TrimSpace(c.EnvFile)
	if envFile != "" {
		path, err := expandPath(envFile)
		if err != nil {
			return nil, fmt.Errorf("env_file: %w", err)
		}
		loaded, err := godotenv.Read(path)
		switch {
		case err == nil:
			values = loaded
		case errors.Is(err, fs.ErrNotExist) && envFile == defaultEnvFile:
		default:
			return nil, fmt.Errorf("env_file %s: %w", path, err)
		}
		c.EnvFile = path
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

func (c *Config) normalizeProxy(lookup lookupFunc) error {
	c.Proxy.Endpoint = strings.TrimSpace(c.Proxy.Endpoint)
	if c.Proxy.Endpoint == "" {
		if value, ok := lookup(envEndpoint); ok {
			c.Proxy.Endpoint = strings.TrimSpace(value)
		}
	}
	c.Proxy.APIKey = strings.TrimSpace(c.Proxy.APIKey)
	if c.Proxy.APIKey == "" {
		if value, ok := lookup(envAPIKey); ok {
			c.Proxy.APIKey = strings.TrimSpace(value)
		}
	}
	if value, ok := lookup(envTimeoutSeconds); ok && strings.TrimSpace(value) != "" {
		seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", envTimeoutSeconds, value)
		}
		if c.Proxy.TimeoutSeconds <= 0 || c.Proxy.TimeoutSeconds == defaultTimeoutSeconds {
			c.Proxy.TimeoutSeconds = seconds
		}
	}
	if c.Proxy.TimeoutSeconds == 0 {
		c.Proxy.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Proxy.PoolSize == 0 {
		c.Proxy.PoolSize = defaultPoolSize
	}
	if c.Proxy.RetryAttempts == 0 {
		c.Proxy.RetryAttempts = defaultRetryAttempts
	}
	return nil
}

func (c *Config) normalizeSession() {
	c.Session.DefaultSessionID = strings.TrimSpace(c.Session.DefaultSessionID)
	if c.Session.DefaultSessionID == "" {
		c.Session.DefaultSessionID = defaultSessionID
	}
	c.Session.DefaultModel = strings.TrimSpace(c.Session.DefaultModel)
	if c.Session.DefaultModel == "" {
		c.Session.DefaultModel = defaultModel
	}
	c.Session.DefaultStrategy = strings.TrimSpace(c.Session.DefaultStrategy)
	if c.Session.DefaultStrategy == "" {
		c.Session.DefaultStrategy = defaultStrategy
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
