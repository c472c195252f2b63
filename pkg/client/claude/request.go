package claude

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Assistant turns may replay the tool
// calls they made; user turns may answer them with tool results.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolInvocation
	ToolResults []ToolResult
}

// ToolResult answers a tool call made in an earlier assistant turn.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Tool declares a function the model may call. InputSchema is a JSON schema
// object; its "properties" and "required" members are sent.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Params are the inputs of one completion. Pointer and slice fields are
// optional: nil or empty leaves them out of the provider request entirely.
type Params struct {
	// Model defaults to DefaultModel.
	Model string
	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens     int
	System        *string
	Temperature   *float64
	Tools         []Tool
	StopSequences []string
	Messages      []Message
}

// UserMessage is shorthand for a plain user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage is shorthand for a plain assistant turn.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// String returns a pointer to v for optional string parameters.
func String(v string) *string { return &v }

// Float returns a pointer to v for optional float parameters.
func Float(v float64) *float64 { return &v }

func (p Params) modelID() string {
	if p.Model == "" {
		return DefaultModel
	}
	return p.Model
}

// buildParams validates p against model and converts it to the provider
// request. Unset optional fields stay at their zero value so the SDK omits them.
func buildParams(model ModelConfig, p Params) (anthropic.MessageNewParams, error) {
	var out anthropic.MessageNewParams

	if len(p.Messages) == 0 {
		return out, &InvalidRequestError{Field: "messages", Reason: "at least one message is required"}
	}

	maxTokens := p.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens < 0 {
		return out, &InvalidRequestError{Field: "max_tokens", Reason: "must be positive"}
	}
	if maxTokens > model.MaxTokens {
		return out, &InvalidRequestError{
			Field:  "max_tokens",
			Reason: fmt.Sprintf("%d exceeds the %d token limit of %s", maxTokens, model.MaxTokens, model.ID),
		}
	}

	messages, err := toAnthropicMessages(p.Messages)
	if err != nil {
		return out, err
	}

	out.Model = anthropic.Model(model.ID)
	out.MaxTokens = int64(maxTokens)
	out.Messages = messages

	// An empty system prompt is rejected by the API, so it counts as unset.
	if p.System != nil && *p.System != "" {
		out.System = []anthropic.TextBlockParam{{Text: *p.System}}
	}

	if p.Temperature != nil {
		t := *p.Temperature
		if t < 0 || t > 1 {
			return out, &InvalidRequestError{Field: "temperature", Reason: fmt.Sprintf("%v is outside [0, 1]", t)}
		}
		out.Temperature = anthropic.Float(t)
	}

	if len(p.StopSequences) > 0 {
		out.StopSequences = p.StopSequences
	}

	if len(p.Tools) > 0 {
		tools, err := toAnthropicTools(p.Tools)
		if err != nil {
			return out, err
		}
		out.Tools = tools
	}

	return out, nil
}

func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for i, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, res := range msg.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolUseID, res.Content, res.IsError))
		}
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			input := call.Input
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(call.ToolUseID, input, call.Name))
		}
		if len(blocks) == 0 {
			return nil, &InvalidRequestError{Field: fmt.Sprintf("messages[%d]", i), Reason: "message has no content"}
		}

		switch msg.Role {
		case RoleUser:
			if len(msg.ToolCalls) > 0 {
				return nil, &InvalidRequestError{Field: fmt.Sprintf("messages[%d]", i), Reason: "user messages cannot carry tool calls"}
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		case RoleAssistant:
			if len(msg.ToolResults) > 0 {
				return nil, &InvalidRequestError{Field: fmt.Sprintf("messages[%d]", i), Reason: "assistant messages cannot carry tool results"}
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			return nil, &InvalidRequestError{Field: fmt.Sprintf("messages[%d].role", i), Reason: fmt.Sprintf("unknown role %q", msg.Role)}
		}
	}
	return out, nil
}

func toAnthropicTools(tools []Tool) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for i, tool := range tools {
		if tool.Name == "" {
			return nil, &InvalidRequestError{Field: fmt.Sprintf("tools[%d].name", i), Reason: "must not be empty"}
		}
		schema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema["properties"],
			Required:   requiredFields(tool.InputSchema["required"]),
		}
		param := anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: schema,
		}
		if tool.Description != "" {
			param.Description = anthropic.String(tool.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out, nil
}

// requiredFields accepts both []string and the []any produced by decoding JSON.
func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
