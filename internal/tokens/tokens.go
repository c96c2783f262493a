// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// =============================================================================
// COUNTER INTERFACE
// =============================================================================

// Counter estimates the token count of a piece of text.
// Implementations must be deterministic and safe for concurrent use.
type Counter interface {
	Count(text string) int
}

// =============================================================================
// HEURISTIC COUNTER
// =============================================================================

// HeuristicFactor is the scaling factor applied to the whitespace word
// count. English prose averages roughly 1.3 tokens per word.
const HeuristicFactor = 1.3

// Heuristic counts tokens as scaled whitespace-separated words.
// It is the accounting fallback for backends that report no usage counters.
type Heuristic struct{}

// Count returns the estimated token count for text. Empty text counts as 0.
func (Heuristic) Count(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * HeuristicFactor)
}

// =============================================================================
// TIKTOKEN COUNTER
// =============================================================================

// FallbackEncoding is used when no tokenizer is known for a model.
const FallbackEncoding = "cl100k_base"

// encoderCache holds loaded encodings keyed by model name. Tokenizer tables
// are expensive to build, read-only after load, and shared process-wide.
var encoderCache sync.Map // model -> *tiktoken.Tiktoken

// Tiktoken counts tokens with the subword tokenizer for a specific model.
// Unknown models silently fall back to the cl100k_base encoding; lookup
// failure is never surfaced as an error.
type Tiktoken struct {
	Model string
}

// NewTiktoken returns a tokenizer-backed counter for the given model.
func NewTiktoken(model string) Tiktoken {
	return Tiktoken{Model: model}
}

// Count returns the exact token count for text under the model's encoding.
// Empty text counts as 0.
func (t Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	enc := encoderFor(t.Model)
	if enc == nil {
		// Tokenizer tables unavailable (e.g. offline first run with no
		// cache); degrade to the heuristic rather than fail.
		return Heuristic{}.Count(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// encoderFor loads (or fetches from cache) the encoding for a model.
func encoderFor(model string) *tiktoken.Tiktoken {
	if cached, ok := encoderCache.Load(model); ok {
		return cached.(*tiktoken.Tiktoken)
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(FallbackEncoding)
		if err != nil {
			return nil
		}
	}

	encoderCache.Store(model, enc)
	return enc
}
