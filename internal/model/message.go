// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation. Content is set
// once when the message is created and never mutated afterwards; ordering
// within a conversation is chronological.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Stats is attached to assistant messages after the exchange
	// completes. Nil for user and system messages.
	Stats *TurnStats `json:"stats,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// Preview returns a truncated preview of the message content.
// Rune-based truncation keeps multi-byte characters intact.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// TURN STATS
// =============================================================================

// TurnStats holds the accounting metadata for one completed exchange.
//
// Tokens and Cost are pointers because "unknown" and "zero" mean different
// things: a nil value signals that the backend supplied no usage data and
// none could be derived, not that the turn was free.
type TurnStats struct {
	Model   string        `json:"model"`
	Latency time.Duration `json:"latency_ns"`

	// Token counts. Tokens is the completion (output) count shown per
	// turn; PromptTokens is set when the backend or estimator supplied it.
	Tokens       *int `json:"tokens,omitempty"`
	PromptTokens *int `json:"prompt_tokens,omitempty"`

	// Cost in USD. Nil when usage data was unavailable.
	Cost *float64 `json:"cost_usd,omitempty"`

	// Err records a backend failure that degraded this turn. The turn
	// still completes and still carries stats.
	Err string `json:"error,omitempty"`
}

// TokenCount returns the output token count, or 0 when unavailable.
func (s *TurnStats) TokenCount() int {
	if s == nil || s.Tokens == nil {
		return 0
	}
	return *s.Tokens
}

// CostUSD returns the cost and whether it is known.
func (s *TurnStats) CostUSD() (float64, bool) {
	if s == nil || s.Cost == nil {
		return 0, false
	}
	return *s.Cost, true
}

// Errored returns true if the turn was degraded by a backend failure.
func (s *TurnStats) Errored() bool {
	return s != nil && s.Err != ""
}

// LatencySeconds returns the turn latency in seconds.
func (s *TurnStats) LatencySeconds() float64 {
	if s == nil {
		return 0
	}
	return s.Latency.Seconds()
}
