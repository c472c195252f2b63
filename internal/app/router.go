package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/CSmithy89/hyyve/internal/agents"
	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// AutoAgent selects persona routing instead of a fixed persona.
const AutoAgent = "auto"

const (
	routeToolName  = "select_agent"
	routeMaxTokens = 256
)

// routeChoice is the input of the select_agent tool.
type routeChoice struct {
	Agent  string `json:"agent" jsonschema:"description=ID of the agent that should answer"`
	Reason string `json:"reason,omitempty" jsonschema:"description=One sentence on why this agent fits"`
}

// Route asks the model which persona should answer text and switches to it.
// The call is billed to the conversation but leaves the history alone. When
// the model names no known persona the conversation switches to fallback.
func (c *Conversation) Route(ctx context.Context, catalog agents.Catalog, text, fallback string) (agents.Persona, error) {
	tool, err := claude.ToolFor[routeChoice](routeToolName, "Hand the request to one of the listed agents")
	if err != nil {
		return agents.Persona{}, err
	}

	c.mu.Lock()
	params := claude.Params{
		Model:       c.base.Model,
		MaxTokens:   routeMaxTokens,
		System:      claude.String(routingPrompt(catalog)),
		Temperature: claude.Float(0),
		Tools:       []claude.Tool{tool},
		Messages:    []claude.Message{claude.UserMessage(text)},
	}
	c.mu.Unlock()

	result, err := c.llm.Complete(ctx, params)
	if err != nil {
		return agents.Persona{}, errors.Wrap(err, "route request")
	}

	c.mu.Lock()
	c.totals = c.totals.Add(result)
	c.mu.Unlock()

	persona, err := catalog.Get(chosenAgent(result))
	if err != nil {
		if persona, err = catalog.Get(fallback); err != nil {
			return agents.Persona{}, err
		}
	}
	c.SetPersona(persona)
	return persona, nil
}

func chosenAgent(result *claude.CompletionResult) string {
	for _, call := range result.ToolCalls {
		if call.Name != routeToolName {
			continue
		}
		if agent, ok := call.Input["agent"].(string); ok {
			return strings.ToLower(strings.TrimSpace(agent))
		}
	}
	return ""
}

func routingPrompt(catalog agents.Catalog) string {
	var sb strings.Builder
	sb.WriteString("You are the Hyyve concierge. Pick the agent best suited to the user's request ")
	sb.WriteString("and call " + routeToolName + " with its ID. Do not answer the request yourself.\n\nAgents:\n")
	for _, id := range catalog.IDs() {
		p := catalog[id]
		fmt.Fprintf(&sb, "- %s: %s", id, p.Description)
		if len(p.Capabilities) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(p.Capabilities, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
