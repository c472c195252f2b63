package claude

const tokensPerMillion = 1_000_000

// TokenUsage is the token accounting reported by the provider for one call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// CostResult is the monetary cost of one call in US dollars.
type CostResult struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// Cost prices usage against the model's rates.
func (m ModelConfig) Cost(usage TokenUsage) CostResult {
	in := float64(usage.InputTokens) / tokensPerMillion * m.InputPricePerMillion
	out := float64(usage.OutputTokens) / tokensPerMillion * m.OutputPricePerMillion
	return CostResult{
		InputCost:  in,
		OutputCost: out,
		TotalCost:  in + out,
	}
}

// CalculateCost looks up model and prices usage against it.
func CalculateCost(model string, usage TokenUsage) (CostResult, error) {
	cfg, err := Lookup(model)
	if err != nil {
		return CostResult{}, err
	}
	return cfg.Cost(usage), nil
}

// Add returns the element-wise sum of two costs.
func (c CostResult) Add(other CostResult) CostResult {
	return CostResult{
		InputCost:  c.InputCost + other.InputCost,
		OutputCost: c.OutputCost + other.OutputCost,
		TotalCost:  c.TotalCost + other.TotalCost,
	}
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}
