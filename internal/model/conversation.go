// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/helwanlabs/campuschat/internal/tokens"
)

// =============================================================================
// RUNNING AGGREGATES
// =============================================================================

// Aggregates holds the session-wide running totals displayed alongside
// the conversation. AvgLatency is maintained as an online average over
// the assistant turns that recorded stats.
type Aggregates struct {
	TotalTokens int           `json:"total_tokens"`
	TotalCost   float64       `json:"total_cost"`
	AvgLatency  time.Duration `json:"avg_latency_ns"`

	// Turns is the number of assistant turns that have contributed to
	// AvgLatency. It never exceeds the number of assistant messages.
	Turns int `json:"turns"`
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one session's chat history and running aggregates.
// Messages are append-only; appends are the only mutators.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SystemPrompt is sent ahead of the trimmed history on every turn.
	SystemPrompt string `json:"system_prompt,omitempty"`

	Messages []*Message `json:"messages"`

	totals  Aggregates
	counter tokens.Counter

	// appended guards against the same assistant turn updating the
	// aggregates twice.
	appended map[string]bool
}

// NewConversation creates an empty conversation. The counter is used to
// account user-message tokens at append time; nil selects the heuristic.
func NewConversation(systemPrompt string, counter tokens.Counter) *Conversation {
	if counter == nil {
		counter = tokens.Heuristic{}
	}
	now := time.Now()
	return &Conversation{
		ID:           "conv_" + uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		SystemPrompt: systemPrompt,
		Messages:     make([]*Message, 0),
		counter:      counter,
		appended:     make(map[string]bool),
	}
}

// SetSystemPrompt replaces the system prompt for subsequent turns.
// Already-recorded messages are unaffected.
func (c *Conversation) SetSystemPrompt(prompt string) {
	c.SystemPrompt = prompt
	c.UpdatedAt = time.Now()
}

// =============================================================================
// APPEND OPERATIONS
// =============================================================================

// AppendUser records a user message and counts its tokens into the
// session total.
func (c *Conversation) AppendUser(content string) *Message {
	msg := NewUserMessage(content)
	c.Messages = append(c.Messages, msg)
	c.totals.TotalTokens += c.counter.Count(content)
	c.UpdatedAt = time.Now()
	return msg
}

// AppendAssistant records a completed assistant turn and folds its stats
// into the running aggregates. The aggregates update runs exactly once
// per message; re-appending the same message is a no-op.
func (c *Conversation) AppendAssistant(msg *Message, stats TurnStats) {
	if msg == nil || c.appended[msg.ID] {
		return
	}
	c.appended[msg.ID] = true

	statsCopy := stats
	msg.Stats = &statsCopy
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()

	c.totals.TotalTokens += statsCopy.TokenCount()
	if cost, ok := statsCopy.CostUSD(); ok {
		c.totals.TotalCost += cost
	}

	// Online average: avg' = (avg*(n-1) + latency) / n.
	n := c.totals.Turns + 1
	c.totals.AvgLatency = (c.totals.AvgLatency*time.Duration(n-1) + statsCopy.Latency) / time.Duration(n)
	c.totals.Turns = n
}

// =============================================================================
// READS
// =============================================================================

// Aggregates returns a copy of the running totals.
func (c *Conversation) Aggregates() Aggregates {
	return c.totals
}

// Window returns the read-only view sent to a backend: the system prompt
// (when set) followed by the most recent n messages, oldest first.
func (c *Conversation) Window(n int) []Message {
	start := 0
	if n >= 0 && len(c.Messages) > n {
		start = len(c.Messages) - n
	}

	out := make([]Message, 0, len(c.Messages)-start+1)
	if c.SystemPrompt != "" {
		out = append(out, Message{Role: RoleSystem, Content: c.SystemPrompt})
	}
	for _, msg := range c.Messages[start:] {
		out = append(out, *msg)
	}
	return out
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAssistantMessage returns the most recent assistant message.
func (c *Conversation) LastAssistantMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}
