package domain

import (
	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// UsageTotals aggregates token usage and cost across successful calls.
type UsageTotals struct {
	Calls int
	Usage claude.TokenUsage
	Cost  claude.CostResult
}

// Add folds one call's result into the totals.
func (t UsageTotals) Add(result *claude.CompletionResult) UsageTotals {
	if result == nil {
		return t
	}
	return UsageTotals{
		Calls: t.Calls + 1,
		Usage: t.Usage.Add(result.Usage),
		Cost:  t.Cost.Add(result.Cost),
	}
}

// UsageReporter is implemented by anything that tracks spend, such as a
// conversation. Failed calls are never counted.
type UsageReporter interface {
	Totals() UsageTotals
}

// ModelIdentifier is an optional extension that returns a stable identifier
// for the underlying model.
type ModelIdentifier interface {
	ModelID() string
}
