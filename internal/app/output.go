package app

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/CSmithy89/hyyve/pkg/client/claude"
)

// WriteResponseHeader prints the model (and persona, when set) above a response
func WriteResponseHeader(w io.Writer, model, persona string, useColor bool) {
	label := model
	if persona != "" {
		label = persona + " · " + model
	}
	header := color.New(color.FgHiCyan, color.Bold)
	if !useColor {
		header.DisableColor()
	}
	header.Fprintf(w, "── %s\n", label)
}

// WriteCostLine prints token usage and cost for one call
func WriteCostLine(w io.Writer, result *claude.CompletionResult, useColor bool) {
	line := color.New(color.Faint)
	if !useColor {
		line.DisableColor()
	}
	line.Fprintf(w, "[%d in / %d out tokens · $%.6f · %s]\n",
		result.Usage.InputTokens, result.Usage.OutputTokens, result.Cost.TotalCost, result.StopReason)
}

// FormatModels renders the model registry as a table
func FormatModels(w io.Writer, models []claude.ModelConfig) {
	fmt.Fprintf(w, "%-28s %-16s %10s %12s %12s\n", "ID", "NAME", "MAX TOKENS", "INPUT $/M", "OUTPUT $/M")
	for _, m := range models {
		fmt.Fprintf(w, "%-28s %-16s %10d %12.2f %12.2f\n",
			m.ID, m.DisplayName, m.MaxTokens, m.InputPricePerMillion, m.OutputPricePerMillion)
	}
}
