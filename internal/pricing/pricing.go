// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pricing

import "math"

// =============================================================================
// PRICE TABLE
// =============================================================================

// ModelPricing holds input and output pricing per 1K tokens in USD.
type ModelPricing struct {
	Input  float64 // Cost per 1K input tokens
	Output float64 // Cost per 1K output tokens
}

// DefaultModel is the pricing entry used for unknown model identifiers.
const DefaultModel = "gpt-3.5-turbo"

// table is the static price list, USD per 1K tokens.
// Prices confirmed from the OpenAI pricing page (2025).
var table = map[string]ModelPricing{
	"gpt-4o-mini":        {Input: 0.00015, Output: 0.0006}, // $0.15/$0.60 per M
	"gpt-3.5-turbo":      {Input: 0.0005, Output: 0.0015},  // $0.50/$1.50 per M
	"gpt-3.5-turbo-0125": {Input: 0.0005, Output: 0.0015},
	"gpt-3.5-turbo-1106": {Input: 0.0005, Output: 0.0015},
	"gpt-4":              {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":        {Input: 0.01, Output: 0.03},
	"gpt-4o":             {Input: 0.005, Output: 0.015},
}

// Lookup returns the pricing for a model, falling back to the default
// entry for unknown identifiers. The second return reports whether the
// model was present in the table.
func Lookup(model string) (ModelPricing, bool) {
	if p, ok := table[model]; ok {
		return p, true
	}
	return table[DefaultModel], false
}

// Models returns the identifiers present in the price table.
func Models() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// =============================================================================
// COST CALCULATION
// =============================================================================

// Calculate returns the USD cost of a completed exchange, rounded to six
// decimal places. Unknown models use the default entry, so the result is
// always defined and never negative for non-negative token counts.
func Calculate(model string, inputTokens, outputTokens int) float64 {
	p, _ := Lookup(model)

	inputCost := float64(inputTokens) / 1000 * p.Input
	outputCost := float64(outputTokens) / 1000 * p.Output

	return round6(inputCost + outputCost)
}

// round6 rounds to 6 decimal digits, the precision displayed per turn.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
