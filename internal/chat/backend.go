// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/tokens"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Usage reports token counts for a completed turn, when the backend
// knows them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Completion is a finished backend reply. Usage is nil when the backend
// reported no token accounting for this turn. ErrMsg is set when the
// reply degraded to an error description; the Content is still what the
// user should see.
type Completion struct {
	Content string
	Model   string
	Usage   *Usage
	ErrMsg  string
}

// Backend produces assistant replies for a trimmed message window.
//
// Implementations degrade transport failures into a Completion whose
// Content describes the problem (with ErrMsg set), so a flaky backend
// never wedges the conversation. Only precondition failures, such as a
// missing credential, are returned as errors.
type Backend interface {
	// Name identifies the backend for display ("local" or "hosted").
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string

	// Complete produces the full reply in one call.
	Complete(ctx context.Context, messages []model.Message) (*Completion, error)

	// Stream produces the reply incrementally, invoking onFragment for
	// each piece of text in arrival order, then returns the assembled
	// Completion.
	Stream(ctx context.Context, messages []model.Message, onFragment func(string)) (*Completion, error)

	// Estimator returns the token counter used when the backend reports
	// no usage of its own.
	Estimator() tokens.Counter

	// Metered reports whether turns on this backend cost money.
	Metered() bool
}
