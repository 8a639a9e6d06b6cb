package proxy

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmproxy/internal/logging"
)

// Client talks to the proxy service. Construct it with NewClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the pooled HTTP client built from the config.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request and retry traces.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryMaxAttempts overrides the total number of attempts (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.cfg.RetryAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays. A zero base disables
// the wait between attempts.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.cfg.RetryBaseDelay = baseDelay
		c.cfg.RetryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient validates cfg and builds a client with its own pooled transport.
// It fails with an error wrapping ErrConfiguration when the endpoint or API
// key is missing.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	normalized := cfg.normalized()
	client := &Client{
		cfg: normalized,
		httpClient: &http.Client{
			Timeout:   normalized.Timeout,
			Transport: newTransport(normalized),
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "proxy")
	return client, nil
}

// Config returns a copy of the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// WorstCaseDuration is the longest a single operation can block when the
// server stalls on every attempt: attempts*timeout plus every backoff wait.
// Each attempt, body read included, is cut off at the timeout.
// Retry-After delays are capped at the max delay and are not included.
func (c *Client) WorstCaseDuration() time.Duration {
	total := time.Duration(c.cfg.RetryAttempts) * c.cfg.Timeout
	for attempt := 1; attempt < c.cfg.RetryAttempts; attempt++ {
		total += c.backoffDelay(attempt)
	}
	return total
}

// Generate sends a call request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) Result {
	env, err := jsonEnvelope(requestTypeCall, req)
	if err != nil {
		return failure(ErrLocal, 0, "Invalid request: %v", err)
	}
	return c.do(ctx, env)
}

// Retrieve sends a retrieve request.
func (c *Client) Retrieve(ctx context.Context, req RetrieveRequest) Result {
	env, err := jsonEnvelope(requestTypeRetrieve, req)
	if err != nil {
		return failure(ErrLocal, 0, "Invalid request: %v", err)
	}
	return c.do(ctx, env)
}

// ModelInfo sends a model_info request with an empty JSON object body.
func (c *Client) ModelInfo(ctx context.Context) Result {
	env, err := jsonEnvelope(requestTypeModelInfo, struct{}{})
	if err != nil {
		return failure(ErrLocal, 0, "Invalid request: %v", err)
	}
	return c.do(ctx, env)
}

// UploadFile sends the file at req.Path as an add request. A path that does
// not exist fails locally without contacting the service.
func (c *Client) UploadFile(ctx context.Context, req UploadFileRequest) Result {
	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure(ErrLocal, 0, "File not found: %s", req.Path)
		}
		return failure(ErrLocal, 0, "Cannot access file: %v", err)
	}
	if info.IsDir() {
		return failure(ErrLocal, 0, "Not a regular file: %s", req.Path)
	}

	file, err := os.Open(req.Path)
	if err != nil {
		return failure(ErrLocal, 0, "Cannot open file: %v", err)
	}
	defer file.Close()

	mimeType := strings.TrimSpace(req.MIMEType)
	if mimeType == "" {
		mimeType = InferMIMEType(req.Path)
	}
	params := uploadParams{
		Description: req.Description,
		SessionID:   req.SessionID,
		Strategy:    req.Strategy,
	}
	env, err := multipartEnvelope(params, partFile, mimeType, file)
	if err != nil {
		return failure(ErrLocal, 0, "Invalid request: %v", err)
	}
	return c.do(ctx, env)
}

// UploadText sends raw text as an add request.
func (c *Client) UploadText(ctx context.Context, req UploadTextRequest) Result {
	params := uploadParams{
		Description: req.Description,
		SessionID:   req.SessionID,
		Strategy:    req.Strategy,
	}
	env, err := multipartEnvelope(params, partText, mimeText, strings.NewReader(req.Text))
	if err != nil {
		return failure(ErrLocal, 0, "Invalid request: %v", err)
	}
	return c.do(ctx, env)
}

func (c *Client) do(ctx context.Context, env envelope) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	logger := c.logger.With(
		logging.String(logging.FieldRequestType, string(env.requestType)),
		logging.String(logging.FieldCorrelationID, requestID),
	)

	var (
		status int
		body   []byte
		err    error
	)
	for attempt := 1; ; attempt++ {
		var retryAfter time.Duration
		status, body, retryAfter, err = c.sendOnce(ctx, env)

		attemptErr := err
		if attemptErr == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
			attemptErr = &httpStatusError{StatusCode: status, Body: body, RetryAfter: retryAfter}
		}
		logger.Debug("proxy attempt finished",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int(logging.FieldStatus, status),
			logging.Int("body_bytes", len(env.body)),
		)

		delay, retry := c.retryDelay(ctx, attemptErr, attempt)
		if !retry {
			break
		}
		logger.Debug("proxy retry scheduled",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(attemptErr),
		)
		// Cancelled while waiting: report the attempt that already finished.
		if c.sleep(ctx, delay) != nil {
			break
		}
	}
	return normalizeResponse(status, bytes.TrimSpace(body), err)
}
