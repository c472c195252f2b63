package claude

import (
	"context"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/CSmithy89/hyyve/pkg/logger"
)

// APIKeyEnv is consulted when no key is passed to NewClient.
const APIKeyEnv = "ANTHROPIC_API_KEY"

const highUtilizationPct = 90

// Client issues completions against the Claude Messages API. It holds only
// configuration fixed at construction and is safe for concurrent use.
type Client struct {
	transport  Transport
	maxRetries int
	log        *logger.Logger
}

type options struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	log        *logger.Logger
	transport  Transport
}

// Option configures a Client.
type Option func(*options)

// WithAPIKey sets the credential, taking precedence over ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithTimeout bounds each request attempt. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried.
// Defaults to DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithLogger sets the logger; the process default is used otherwise.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTransport replaces the SDK-backed transport.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// NewClient builds a client. The API key comes from WithAPIKey, else from the
// ANTHROPIC_API_KEY environment variable; without either it returns
// *ConfigurationError.
func NewClient(opts ...Option) (*Client, error) {
	o := options{
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.apiKey == "" {
		o.apiKey = os.Getenv(APIKeyEnv)
	}
	if o.apiKey == "" {
		return nil, &ConfigurationError{Reason: "no API key provided and " + APIKeyEnv + " is not set"}
	}
	if o.timeout <= 0 {
		return nil, &ConfigurationError{Reason: "timeout must be positive"}
	}
	if o.maxRetries < 0 {
		return nil, &ConfigurationError{Reason: "max retries must not be negative"}
	}
	if o.log == nil {
		o.log = logger.NewComponentLogger("claude")
	}
	if o.transport == nil {
		o.transport = newSDKTransport(transportConfig{
			apiKey:     o.apiKey,
			baseURL:    o.baseURL,
			timeout:    o.timeout,
			maxRetries: o.maxRetries,
		})
	}

	return &Client{
		transport:  o.transport,
		maxRetries: o.maxRetries,
		log:        o.log,
	}, nil
}

// Complete sends params and blocks until the full response arrives.
func (c *Client) Complete(ctx context.Context, params Params) (*CompletionResult, error) {
	model, req, err := prepare(params)
	if err != nil {
		return nil, err
	}

	log := c.callLogger(model)
	start := time.Now()

	msg, err := c.transport.New(ctx, req)
	if err != nil {
		err = classifyError(err, c.attempts())
		log.Warn("completion failed", "error", err)
		return nil, err
	}

	result, err := newCompletionResult(model, msg)
	if err != nil {
		return nil, err
	}
	logUsage(log, result, req.MaxTokens, time.Since(start))
	return result, nil
}

// AsyncResult is delivered by CompleteAsync.
type AsyncResult struct {
	Result *CompletionResult
	Err    error
}

// CompleteAsync runs Complete on its own goroutine. The returned channel
// yields exactly one value and is then closed.
func (c *Client) CompleteAsync(ctx context.Context, params Params) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		res, err := c.Complete(ctx, params)
		ch <- AsyncResult{Result: res, Err: err}
	}()
	return ch
}

func prepare(params Params) (ModelConfig, anthropic.MessageNewParams, error) {
	model, err := Lookup(params.modelID())
	if err != nil {
		return ModelConfig{}, anthropic.MessageNewParams{}, err
	}
	req, err := buildParams(model, params)
	if err != nil {
		return ModelConfig{}, anthropic.MessageNewParams{}, err
	}
	return model, req, nil
}

func (c *Client) attempts() int {
	return c.maxRetries + 1
}

func (c *Client) callLogger(model ModelConfig) *logger.Logger {
	l := c.log.WithCall(uuid.NewString())
	l.Debug("sending request", "model", model.ID)
	return l
}

func logUsage(log *logger.Logger, result *CompletionResult, maxTokens int64, elapsed time.Duration) {
	log.Debug("completion finished",
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"stop_reason", result.StopReason,
		"cost_usd", result.Cost.TotalCost,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	if result.StopReason == stopReasonMaxTokens {
		log.Warn("response truncated by max_tokens", "max_tokens", maxTokens)
		return
	}
	if maxTokens > 0 {
		pct := float64(result.Usage.OutputTokens) / float64(maxTokens) * 100
		if pct > highUtilizationPct {
			log.Warn("output close to max_tokens", "utilization_pct", pct, "max_tokens", maxTokens)
		}
	}
}
