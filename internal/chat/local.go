// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/ollama"
	"github.com/helwanlabs/campuschat/internal/tokens"
)

// =============================================================================
// LOCAL BACKEND (OLLAMA)
// =============================================================================

// LocalBackend serves turns from a local Ollama server. Turns are free:
// the backend never reports usage, so token counts fall back to the
// heuristic estimator and cost stays unavailable.
type LocalBackend struct {
	client *ollama.Client
	mdl    string
}

// NewLocalBackend creates a backend over the given Ollama client. An
// empty model selects the client's default.
func NewLocalBackend(client *ollama.Client, mdl string) *LocalBackend {
	if mdl == "" {
		mdl = client.DefaultModel()
	}
	return &LocalBackend{
		client: client,
		mdl:    mdl,
	}
}

// Name returns "local".
func (b *LocalBackend) Name() string { return "local" }

// Model returns the Ollama model in use.
func (b *LocalBackend) Model() string { return b.mdl }

// Estimator returns the word-count heuristic; Ollama usage counters are
// not meaningful for billing and are ignored.
func (b *LocalBackend) Estimator() tokens.Counter { return tokens.Heuristic{} }

// Metered returns false: local inference is free.
func (b *LocalBackend) Metered() bool { return false }

// ListModels returns the locally installed model names, falling back to
// a static list when the server cannot be reached.
func (b *LocalBackend) ListModels(ctx context.Context) []string {
	return b.client.ListModels(ctx)
}

// Complete produces the full reply in one request. Transport failures
// degrade into an error-description reply rather than an error.
func (b *LocalBackend) Complete(ctx context.Context, messages []model.Message) (*Completion, error) {
	resp, err := b.client.Chat(ctx, b.mdl, toOllamaMessages(messages), nil)
	if err != nil {
		return degradedCompletion(b.mdl, err), nil
	}

	return &Completion{
		Content: resp.Text(),
		Model:   b.mdl,
	}, nil
}

// Stream produces the reply incrementally. A stream that drops before
// its done marker still yields whatever content arrived; only a failure
// to reach the server at all degrades to an error reply.
func (b *LocalBackend) Stream(ctx context.Context, messages []model.Message, onFragment func(string)) (*Completion, error) {
	var content strings.Builder

	err := b.client.ChatStream(ctx, b.mdl, toOllamaMessages(messages), nil, func(chunk ollama.StreamChunk) {
		if chunk.Content == "" {
			return
		}
		content.WriteString(chunk.Content)
		if onFragment != nil {
			onFragment(chunk.Content)
		}
	})
	if err != nil {
		if content.Len() == 0 {
			return degradedCompletion(b.mdl, err), nil
		}
		// Partial reply stands; record the failure on the turn.
		return &Completion{
			Content: content.String(),
			Model:   b.mdl,
			ErrMsg:  err.Error(),
		}, nil
	}

	return &Completion{
		Content: content.String(),
		Model:   b.mdl,
	}, nil
}

// degradedCompletion turns a transport failure into a visible reply so
// the conversation keeps moving.
func degradedCompletion(mdl string, err error) *Completion {
	return &Completion{
		Content: "Error processing request: " + err.Error(),
		Model:   mdl,
		ErrMsg:  err.Error(),
	}
}

func toOllamaMessages(messages []model.Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollama.Message{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return out
}
