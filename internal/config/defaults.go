package config

const (
	defaultEnvFile              = ".env"
	defaultTimeoutSeconds       = 118
	defaultPoolSize             = 10
	defaultRetryAttempts        = 3
	defaultRetryBaseDelayMS     = 500
	defaultRetryMaxDelaySeconds = 120
	defaultSessionID            = "GenericSession"
	defaultModel                = "4o-mini"
	defaultStrategy             = "smart"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		EnvFile: defaultEnvFile,
		Proxy: Proxy{
			TimeoutSeconds:       defaultTimeoutSeconds,
			PoolSize:             defaultPoolSize,
			RetryAttempts:        defaultRetryAttempts,
			RetryBaseDelayMS:     defaultRetryBaseDelayMS,
			RetryMaxDelaySeconds: defaultRetryMaxDelaySeconds,
		},
		Session: Session{
			DefaultSessionID: defaultSessionID,
			DefaultModel:     defaultModel,
			DefaultStrategy:  defaultStrategy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
