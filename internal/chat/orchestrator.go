// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/pricing"
)

// DefaultHistoryWindow is the number of recent messages sent to the
// backend on each turn, in addition to the system prompt.
const DefaultHistoryWindow = 6

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs conversation turns against a backend. It owns the
// turn lifecycle: history trimming, timing, token and cost accounting,
// and recording the result on the conversation.
type Orchestrator struct {
	backend Backend
	window  int
}

// NewOrchestrator creates an orchestrator for the given backend. A
// negative window selects the default.
func NewOrchestrator(backend Backend, window int) *Orchestrator {
	if window < 0 {
		window = DefaultHistoryWindow
	}
	return &Orchestrator{
		backend: backend,
		window:  window,
	}
}

// Backend returns the backend turns are served from.
func (o *Orchestrator) Backend() Backend {
	return o.backend
}

// TurnOptions controls how a single turn runs.
type TurnOptions struct {
	// Stream selects incremental delivery. OnFragment is invoked for
	// each text fragment in arrival order; ignored when Stream is false.
	Stream     bool
	OnFragment func(string)
}

// RunTurn records the user input, produces the assistant reply, and
// appends both to the conversation. It never returns an error: failures
// degrade into an assistant message describing the problem, with the
// error recorded on the turn's stats. The returned message is the
// assistant reply, already appended.
func (o *Orchestrator) RunTurn(ctx context.Context, conv *model.Conversation, input string, opts TurnOptions) *model.Message {
	conv.AppendUser(input)
	window := conv.Window(o.window)

	start := time.Now()

	var comp *Completion
	var err error
	if opts.Stream {
		comp, err = o.backend.Stream(ctx, window, opts.OnFragment)
	} else {
		comp, err = o.backend.Complete(ctx, window)
	}

	latency := time.Since(start)

	if err != nil {
		msg := model.NewAssistantMessage(err.Error())
		conv.AppendAssistant(msg, model.TurnStats{
			Model:   o.backend.Model(),
			Latency: latency,
			Err:     err.Error(),
		})
		return msg
	}

	msg := model.NewAssistantMessage(comp.Content)
	conv.AppendAssistant(msg, o.buildStats(comp, window, latency))
	return msg
}

// buildStats derives the turn's accounting from what the backend
// reported. Server-reported usage wins; a metered backend without usage
// gets tokenizer estimates so cost can still be shown; a free backend
// gets a heuristic count and no cost.
func (o *Orchestrator) buildStats(comp *Completion, window []model.Message, latency time.Duration) model.TurnStats {
	stats := model.TurnStats{
		Model:   comp.Model,
		Latency: latency,
		Err:     comp.ErrMsg,
	}
	if stats.Model == "" {
		stats.Model = o.backend.Model()
	}

	var promptTokens, completionTokens int
	switch {
	case comp.Usage != nil:
		promptTokens = comp.Usage.PromptTokens
		completionTokens = comp.Usage.CompletionTokens
	case o.backend.Metered():
		promptTokens = o.backend.Estimator().Count(joinContent(window))
		completionTokens = o.backend.Estimator().Count(comp.Content)
	default:
		completionTokens = o.backend.Estimator().Count(comp.Content)
		stats.Tokens = &completionTokens
		return stats
	}

	stats.Tokens = &completionTokens
	stats.PromptTokens = &promptTokens
	if o.backend.Metered() {
		cost := pricing.Calculate(stats.Model, promptTokens, completionTokens)
		stats.Cost = &cost
	}
	return stats
}

// joinContent concatenates message contents for prompt-side token
// estimation.
func joinContent(messages []model.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
