package domain

import (
	"context"

	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// LLM represents the completion surface the application layer depends on
type LLM interface {
	// Complete sends a request and blocks until the full response is available
	Complete(ctx context.Context, params claude.Params) (*claude.CompletionResult, error)

	// Stream validates a request and returns a lazily opened text stream
	Stream(ctx context.Context, params claude.Params) (*claude.TextStream, error)
}
