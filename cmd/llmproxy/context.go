package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"llmproxy/internal/config"
	"llmproxy/internal/logging"
	"llmproxy/internal/proxy"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	clientOnce sync.Once
	client     *proxy.Client
	logger     *slog.Logger
	clientErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
			cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*c.logFormatFlag))
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureClient builds the logger and the proxy client once per invocation so
// every request a command issues shares one connection pool.
func (c *commandContext) ensureClient() (*proxy.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.clientErr = fmt.Errorf("load configuration: %w", err)
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.clientErr = fmt.Errorf("init logging: %w", err)
			return
		}
		client, err := proxy.NewClient(clientConfig(cfg), proxy.WithLogger(logger))
		if err != nil {
			c.clientErr = err
			return
		}
		c.logger = logging.NewComponentLogger(logger, "cli")
		c.client = client
	})
	return c.client, c.clientErr
}

func clientConfig(cfg *config.Config) proxy.Config {
	return proxy.Config{
		Endpoint:       cfg.Proxy.Endpoint,
		APIKey:         cfg.Proxy.APIKey,
		Timeout:        cfg.Timeout(),
		PoolSize:       cfg.Proxy.PoolSize,
		RetryAttempts:  cfg.Proxy.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay(),
		RetryMaxDelay:  cfg.RetryMaxDelay(),
	}
}

// requestContext stamps the command's context with a fresh correlation ID so
// every proxy call made by one invocation logs under the same ID.
func (c *commandContext) requestContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithRequestID(ctx, uuid.NewString())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
