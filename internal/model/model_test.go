// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedCounter makes user-token accounting deterministic in tests.
type fixedCounter struct{ n int }

func (f fixedCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return f.n
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestConversation_AppendUser(t *testing.T) {
	conv := NewConversation("be helpful", fixedCounter{n: 5})

	msg := conv.AppendUser("hello there")
	require.NotNil(t, msg)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, 1, conv.MessageCount())
	assert.Equal(t, 5, conv.Aggregates().TotalTokens)
}

func TestConversation_AppendAssistantUpdatesAggregates(t *testing.T) {
	conv := NewConversation("", fixedCounter{n: 0})

	conv.AppendUser("q1")
	conv.AppendAssistant(NewAssistantMessage("a1"), TurnStats{
		Model:   "gpt-4o-mini",
		Latency: 1 * time.Second,
		Tokens:  intPtr(100),
		Cost:    floatPtr(0.0001),
	})

	agg := conv.Aggregates()
	assert.Equal(t, 100, agg.TotalTokens)
	assert.InDelta(t, 0.0001, agg.TotalCost, 1e-12)
	assert.Equal(t, 1*time.Second, agg.AvgLatency)
	assert.Equal(t, 1, agg.Turns)
}

func TestConversation_OnlineAverageLatency(t *testing.T) {
	conv := NewConversation("", fixedCounter{n: 0})

	latencies := []time.Duration{1 * time.Second, 3 * time.Second}
	for _, lat := range latencies {
		conv.AppendUser("q")
		conv.AppendAssistant(NewAssistantMessage("a"), TurnStats{Latency: lat})
	}
	assert.Equal(t, 2*time.Second, conv.Aggregates().AvgLatency)

	// A third turn at exactly the average leaves it unchanged.
	conv.AppendUser("q")
	conv.AppendAssistant(NewAssistantMessage("a"), TurnStats{Latency: 2 * time.Second})
	assert.Equal(t, 2*time.Second, conv.Aggregates().AvgLatency)
	assert.Equal(t, 3, conv.Aggregates().Turns)
}

func TestConversation_TurnCountNeverExceedsAssistantMessages(t *testing.T) {
	conv := NewConversation("", fixedCounter{n: 0})

	conv.AppendUser("q1")
	conv.AppendAssistant(NewAssistantMessage("a1"), TurnStats{Latency: time.Second})

	// A failed turn that appends no assistant message must not advance
	// the denominator.
	conv.AppendUser("q2")

	assistants := 0
	for _, m := range conv.Messages {
		if m.Role == RoleAssistant {
			assistants++
		}
	}
	assert.Equal(t, assistants, conv.Aggregates().Turns)
}

func TestConversation_NoDoubleAggregateUpdate(t *testing.T) {
	conv := NewConversation("", fixedCounter{n: 0})

	msg := NewAssistantMessage("answer")
	stats := TurnStats{Latency: time.Second, Tokens: intPtr(50), Cost: floatPtr(0.001)}

	conv.AppendAssistant(msg, stats)
	conv.AppendAssistant(msg, stats) // retry of the same turn

	agg := conv.Aggregates()
	assert.Equal(t, 1, agg.Turns)
	assert.Equal(t, 50, agg.TotalTokens)
	assert.InDelta(t, 0.001, agg.TotalCost, 1e-12)
	assert.Len(t, conv.Messages, 1)
}

func TestConversation_Window(t *testing.T) {
	conv := NewConversation("system prompt", fixedCounter{n: 0})

	for i := 0; i < 5; i++ {
		conv.AppendUser("question")
		conv.AppendAssistant(NewAssistantMessage("answer"), TurnStats{})
	}

	window := conv.Window(6)
	require.Len(t, window, 7)
	assert.Equal(t, RoleSystem, window[0].Role)
	assert.Equal(t, "system prompt", window[0].Content)

	// The trimmed view keeps the most recent messages, oldest first.
	assert.Equal(t, RoleUser, window[1].Role)
	assert.Equal(t, RoleAssistant, window[len(window)-1].Role)
}

func TestConversation_WindowShorterThanHistory(t *testing.T) {
	conv := NewConversation("", fixedCounter{n: 0})
	conv.AppendUser("only question")

	window := conv.Window(6)
	require.Len(t, window, 1)
	assert.Equal(t, "only question", window[0].Content)
}

func TestTurnStats_UnavailableVersusZero(t *testing.T) {
	unknown := &TurnStats{}
	assert.Equal(t, 0, unknown.TokenCount())
	_, ok := unknown.CostUSD()
	assert.False(t, ok)

	free := &TurnStats{Tokens: intPtr(0), Cost: floatPtr(0)}
	cost, ok := free.CostUSD()
	assert.True(t, ok)
	assert.Equal(t, 0.0, cost)
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("a long message that should be truncated for display")
	assert.Equal(t, "a long ...", msg.Preview(10))

	short := NewUserMessage("hi")
	assert.Equal(t, "hi", short.Preview(10))
}
