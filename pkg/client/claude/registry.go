package claude

import (
	"sort"
	"time"
)

// Model identifiers known to the registry.
const (
	ModelSonnet4 = "claude-sonnet-4-20250514"
	ModelOpus4   = "claude-opus-4-20250514"
	ModelHaiku4  = "claude-haiku-4-20250514"
)

const (
	DefaultModel      = ModelSonnet4
	DefaultMaxTokens  = 4096
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// ModelConfig describes a registered model: its output token ceiling and
// per-million-token pricing in US dollars.
type ModelConfig struct {
	ID                    string  `json:"id"`
	DisplayName           string  `json:"display_name"`
	MaxTokens             int     `json:"max_tokens"`
	InputPricePerMillion  float64 `json:"input_price_per_million"`
	OutputPricePerMillion float64 `json:"output_price_per_million"`
}

var models = map[string]ModelConfig{
	ModelSonnet4: {
		ID:                    ModelSonnet4,
		DisplayName:           "Claude Sonnet 4",
		MaxTokens:             8192,
		InputPricePerMillion:  3.00,
		OutputPricePerMillion: 15.00,
	},
	ModelOpus4: {
		ID:                    ModelOpus4,
		DisplayName:           "Claude Opus 4",
		MaxTokens:             8192,
		InputPricePerMillion:  15.00,
		OutputPricePerMillion: 75.00,
	},
	ModelHaiku4: {
		ID:                    ModelHaiku4,
		DisplayName:           "Claude Haiku 4",
		MaxTokens:             8192,
		InputPricePerMillion:  0.25,
		OutputPricePerMillion: 1.25,
	},
}

// Lookup returns the configuration for id. Unregistered identifiers are
// rejected with *UnknownModelError; there is no fallback model.
func Lookup(id string) (ModelConfig, error) {
	cfg, ok := models[id]
	if !ok {
		return ModelConfig{}, &UnknownModelError{Model: id}
	}
	return cfg, nil
}

// Models lists every registered model ordered by identifier.
func Models() []ModelConfig {
	out := make([]ModelConfig, 0, len(models))
	for _, cfg := range models {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
