package claude

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Transport sends built requests to the provider. The SDK-backed
// implementation handles retries and per-attempt timeouts itself.
type Transport interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) EventStream
}

// EventStream is an open streaming session. The SDK's server-sent event
// stream satisfies it.
type EventStream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

type sdkTransport struct {
	client anthropic.Client
}

type transportConfig struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

func newSDKTransport(cfg transportConfig) *sdkTransport {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithMaxRetries(cfg.maxRetries),
		option.WithRequestTimeout(cfg.timeout),
	}
	if cfg.baseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.baseURL))
	}
	return &sdkTransport{client: anthropic.NewClient(opts...)}
}

func (t *sdkTransport) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return t.client.Messages.New(ctx, params)
}

func (t *sdkTransport) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) EventStream {
	return t.client.Messages.NewStreaming(ctx, params)
}
