package app

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/CSmithy89/hyyve/internal/agents"
	"github.com/CSmithy89/hyyve/pkg/agent/domain"
	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// Conversation keeps the message history of one interactive session in
// memory and tracks what it has spent. Nothing is persisted.
type Conversation struct {
	llm domain.LLM

	mu      sync.Mutex
	base    claude.Params
	persona string
	history []claude.Message
	totals  domain.UsageTotals
}

// NewConversation starts an empty conversation. base supplies the model,
// token limit, temperature and system prompt of every turn; its Messages
// are ignored.
func NewConversation(llm domain.LLM, base claude.Params) *Conversation {
	base.Messages = nil
	return &Conversation{llm: llm, base: base}
}

// SetPersona replaces the system prompt with the persona's. History is kept.
func (c *Conversation) SetPersona(p agents.Persona) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = p.ID
	c.base.System = claude.String(p.SystemPrompt())
}

// Persona returns the active persona ID, if any.
func (c *Conversation) Persona() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persona
}

// ModelID implements domain.ModelIdentifier.
func (c *Conversation) ModelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base.Model == "" {
		return claude.DefaultModel
	}
	return c.base.Model
}

// Send runs one blocking turn.
func (c *Conversation) Send(ctx context.Context, text string) (*claude.CompletionResult, error) {
	params := c.next(text)
	result, err := c.llm.Complete(ctx, params)
	if err != nil {
		return nil, err
	}
	c.record(text, result)
	return result, nil
}

// SendStream runs one streaming turn, writing fragments to w as they arrive.
// A turn that fails part way leaves the history untouched.
func (c *Conversation) SendStream(ctx context.Context, text string, w io.Writer) (*claude.CompletionResult, error) {
	params := c.next(text)
	stream, err := c.llm.Stream(ctx, params)
	if err != nil {
		return nil, err
	}
	for fragment, err := range stream.Text() {
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			return nil, errors.Wrap(err, "write stream output")
		}
	}
	result, err := stream.Result()
	if err != nil {
		return nil, err
	}
	c.record(text, result)
	return result, nil
}

// Clear drops the history. Spend totals are kept.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a copy of the recorded turns.
func (c *Conversation) History() []claude.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Totals implements domain.UsageReporter.
func (c *Conversation) Totals() domain.UsageTotals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

func (c *Conversation) next(text string) claude.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	params := c.base
	params.Messages = append(slices.Clone(c.history), claude.UserMessage(text))
	return params
}

func (c *Conversation) record(text string, result *claude.CompletionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, claude.UserMessage(text))
	// Tool calls are not replayed: the conversation never supplies their
	// results, and an unanswered tool_use block is rejected on the next turn.
	if result.Content != "" {
		c.history = append(c.history, claude.AssistantMessage(result.Content))
	}
	c.totals = c.totals.Add(result)
}
