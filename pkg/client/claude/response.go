package claude

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"
)

const (
	stopReasonEndTurn   = "end_turn"
	stopReasonMaxTokens = "max_tokens"
)

// ToolInvocation is a tool call requested by the model.
type ToolInvocation struct {
	ToolUseID string         `json:"tool_use_id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
}

// CompletionResult is the outcome of one successful call.
type CompletionResult struct {
	Content    string           `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      TokenUsage       `json:"usage"`
	Cost       CostResult       `json:"cost"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
}

// ExtractText concatenates the text blocks of msg in order. Other block
// kinds are skipped.
func ExtractText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// ExtractToolCalls returns the tool_use blocks of msg in emission order, or
// nil when the model requested no tools.
func ExtractToolCalls(msg *anthropic.Message) ([]ToolInvocation, error) {
	if msg == nil {
		return nil, nil
	}
	var calls []ToolInvocation
	for _, block := range msg.Content {
		if block.Type != "tool_use" {
			continue
		}
		toolUse := block.AsToolUse()
		input := map[string]any{}
		if len(toolUse.Input) > 0 {
			if err := json.Unmarshal(toolUse.Input, &input); err != nil {
				return nil, errors.Wrapf(err, "claude: decode input of tool %q", toolUse.Name)
			}
			if input == nil { // literal null
				input = map[string]any{}
			}
		}
		calls = append(calls, ToolInvocation{
			ToolUseID: toolUse.ID,
			Name:      toolUse.Name,
			Input:     input,
		})
	}
	return calls, nil
}

func newCompletionResult(model ModelConfig, msg *anthropic.Message) (*CompletionResult, error) {
	toolCalls, err := ExtractToolCalls(msg)
	if err != nil {
		return nil, err
	}
	stopReason := string(msg.StopReason)
	if stopReason == "" {
		stopReason = stopReasonEndTurn
	}
	usage := TokenUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
	return &CompletionResult{
		Content:    ExtractText(msg),
		StopReason: stopReason,
		Usage:      usage,
		Cost:       model.Cost(usage),
		ToolCalls:  toolCalls,
	}, nil
}
