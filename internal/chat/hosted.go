// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/openai"
	"github.com/helwanlabs/campuschat/internal/tokens"
)

// =============================================================================
// HOSTED BACKEND (OPENAI)
// =============================================================================

// HostedBackend serves turns from the OpenAI API. Turns are metered:
// usage comes from the server when it reports it, otherwise counts are
// estimated with the model's tokenizer so cost can still be shown.
type HostedBackend struct {
	client *openai.Client
}

// NewHostedBackend creates a backend over a configured OpenAI client.
// Returns openai.ErrNotConfigured when the client has no usable key, so
// misconfiguration surfaces before the first turn.
func NewHostedBackend(client *openai.Client) (*HostedBackend, error) {
	if client == nil || !client.IsConfigured() {
		return nil, openai.ErrNotConfigured
	}
	return &HostedBackend{client: client}, nil
}

// Name returns "hosted".
func (b *HostedBackend) Name() string { return "hosted" }

// Model returns the OpenAI model in use.
func (b *HostedBackend) Model() string { return b.client.Model() }

// Estimator returns the tokenizer-backed counter for this model.
func (b *HostedBackend) Estimator() tokens.Counter {
	return tokens.Tiktoken{Model: b.client.Model()}
}

// Metered returns true: hosted turns cost money.
func (b *HostedBackend) Metered() bool { return true }

// Complete produces the full reply in one request. The server's usage
// block, when present, is carried through; when absent the Completion's
// Usage stays nil and the caller decides how to account the turn.
func (b *HostedBackend) Complete(ctx context.Context, messages []model.Message) (*Completion, error) {
	resp, err := b.client.Chat(ctx, toOpenAIMessages(messages))
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			return nil, err
		}
		return degradedCompletion(b.client.Model(), err), nil
	}

	comp := &Completion{
		Content: resp.GetContent(),
		Model:   b.client.Model(),
	}
	if resp.Usage != nil {
		comp.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}
	return comp, nil
}

// Stream produces the reply incrementally. Streaming responses carry no
// usage block, so Usage stays nil and counts are estimated downstream.
// A mid-stream failure appends a visible error fragment to whatever
// content already arrived; the partial reply stands.
func (b *HostedBackend) Stream(ctx context.Context, messages []model.Message, onFragment func(string)) (*Completion, error) {
	var content strings.Builder

	err := b.client.ChatStream(ctx, toOpenAIMessages(messages), func(chunk openai.StreamChunk) {
		text := chunk.GetContent()
		if text == "" {
			return
		}
		content.WriteString(text)
		if onFragment != nil {
			onFragment(text)
		}
	})
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			return nil, err
		}
		if content.Len() == 0 {
			return degradedCompletion(b.client.Model(), err), nil
		}

		fragment := "\n*Error during streaming: " + err.Error() + "*"
		content.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
		return &Completion{
			Content: content.String(),
			Model:   b.client.Model(),
			ErrMsg:  err.Error(),
		}, nil
	}

	return &Completion{
		Content: content.String(),
		Model:   b.client.Model(),
	}, nil
}

func toOpenAIMessages(messages []model.Message) []openai.ChatMessage {
	out := make([]openai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return out
}
