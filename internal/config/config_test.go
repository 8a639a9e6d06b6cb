package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"llmproxy/internal/config"
)

// isolate points HOME and the working directory at fresh temp dirs and clears
// the proxy environment variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"LLMPROXY_ENDPOINT", "LLMPROXY_API_KEY", "LLMPROXY_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	work := t.TempDir()
	t.Chdir(work)
	return work
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("LLMPROXY_ENDPOINT", "https://proxy.example.com/api")
	t.Setenv("LLMPROXY_API_KEY", "secret")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	defaultPath, _ := config.DefaultConfigPath()
	if resolved != defaultPath {
		t.Fatalf("resolved = %q, want %q", resolved, defaultPath)
	}
	if cfg.Proxy.Endpoint != "https://proxy.example.com/api" || cfg.Proxy.APIKey != "secret" {
		t.Fatalf("unexpected proxy settings: %+v", cfg.Proxy)
	}
	if cfg.Timeout() != 118*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout())
	}
	if cfg.Proxy.PoolSize != 10 || cfg.Proxy.RetryAttempts != 3 {
		t.Fatalf("unexpected pool/retry: %+v", cfg.Proxy)
	}
	if cfg.RetryBaseDelay() != 500*time.Millisecond || cfg.RetryMaxDelay() != 2*time.Minute {
		t.Fatalf("unexpected retry delays: %s %s", cfg.RetryBaseDelay(), cfg.RetryMaxDelay())
	}
	if cfg.Session.DefaultSessionID != "GenericSession" || cfg.Session.DefaultModel != "4o-mini" || cfg.Session.DefaultStrategy != "smart" {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadMissingCredentialsExplainsFix(t *testing.T) {
	isolate(t)

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error without endpoint and api key")
	}
	for _, want := range []string{"LLMPROXY_ENDPOINT", "LLMPROXY_API_KEY", ".env"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadReadsDotEnvInWorkingDirectory(t *testing.T) {
	work := isolate(t)
	writeFile(t, filepath.Join(work, ".env"), "LLMPROXY_ENDPOINT=https://dotenv.example.com\nLLMPROXY_API_KEY=from-file\n")
	t.Setenv("LLMPROXY_API_KEY", "from-process")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Proxy.Endpoint != "https://dotenv.example.com" {
		t.Fatalf("endpoint = %q", cfg.Proxy.Endpoint)
	}
	if cfg.Proxy.APIKey != "from-process" {
		t.Fatalf("process environment should win over .env, got %q", cfg.Proxy.APIKey)
	}
}

func TestLoadExplicitEnvFileMustExist(t *testing.T) {
	work := isolate(t)
	path := filepath.Join(work, "llmproxy.toml")
	writeFile(t, path, "env_file = \"missing.env\"\n")

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "env_file") {
		t.Fatalf("expected env_file error, got %v", err)
	}
}

func TestLoadFileValuesWinOverEnvironment(t *testing.T) {
	work := isolate(t)
	t.Setenv("LLMPROXY_ENDPOINT", "https://env.example.com")
	t.Setenv("LLMPROXY_API_KEY", "env-key")
	t.Setenv("LLMPROXY_TIMEOUT_SECONDS", "30")
	path := filepath.Join(work, "custom.toml")
	writeFile(t, path, `
[proxy]
endpoint = "http://localhost:8080/llm"
pool_size = 4
retry_attempts = 5

[session]
default_session_id = "Notes"

[logging]
format = "JSON"
file = "~/logs/llmproxy.log"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Proxy.Endpoint != "http://localhost:8080/llm" {
		t.Fatalf("file endpoint should win, got %q", cfg.Proxy.Endpoint)
	}
	if cfg.Proxy.APIKey != "env-key" {
		t.Fatalf("api key should fall back to env, got %q", cfg.Proxy.APIKey)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Fatalf("timeout env should apply over the default, got %s", cfg.Timeout())
	}
	if cfg.Proxy.PoolSize != 4 || cfg.Proxy.RetryAttempts != 5 {
		t.Fatalf("unexpected proxy values: %+v", cfg.Proxy)
	}
	if cfg.Session.DefaultSessionID != "Notes" || cfg.Session.DefaultModel != "4o-mini" {
		t.Fatalf("unexpected session: %+v", cfg.Session)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format should be lowercased, got %q", cfg.Logging.Format)
	}
	home, _ := os.UserHomeDir()
	if cfg.Logging.File != filepath.Join(home, "logs", "llmproxy.log") {
		t.Fatalf("log file not expanded: %q", cfg.Logging.File)
	}
}

func TestLoadFindsProjectConfig(t *testing.T) {
	work := isolate(t)
	writeFile(t, filepath.Join(work, "llmproxy.toml"), "[proxy]\nendpoint = \"https://p.example.com\"\napi_key = \"k\"\n")

	_, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || filepath.Base(resolved) != "llmproxy.toml" {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := config.Default()
	base.Proxy.Endpoint = "https://proxy.example.com"
	base.Proxy.APIKey = "k"
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	cases := map[string]func(*config.Config){
		"relative endpoint": func(c *config.Config) { c.Proxy.Endpoint = "proxy.example.com" },
		"ftp endpoint":      func(c *config.Config) { c.Proxy.Endpoint = "ftp://proxy.example.com" },
		"zero timeout":      func(c *config.Config) { c.Proxy.TimeoutSeconds = 0 },
		"zero pool":         func(c *config.Config) { c.Proxy.PoolSize = 0 },
		"zero attempts":     func(c *config.Config) { c.Proxy.RetryAttempts = 0 },
		"negative base":     func(c *config.Config) { c.Proxy.RetryBaseDelayMS = -1 },
		"log format":        func(c *config.Config) { c.Logging.Format = "xml" },
		"log level":         func(c *config.Config) { c.Logging.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	isolate(t)
	t.Setenv("LLMPROXY_ENDPOINT", "https://proxy.example.com")
	t.Setenv("LLMPROXY_API_KEY", "k")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat sample: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("sample permissions = %o", perm)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists || cfg.Proxy.Endpoint != "https://proxy.example.com" {
		t.Fatalf("unexpected sample load: exists=%v endpoint=%q", exists, cfg.Proxy.Endpoint)
	}
}
