// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and per-turn usage accounting.
//
// # Key Types
//
//   - Message: a single immutable chat message with role and content
//   - TurnStats: token, latency, and cost metadata attached to an
//     assistant message after its exchange completes
//   - Conversation: the append-only message history for one session,
//     plus running aggregates (total tokens, total cost, average latency)
//
// A Conversation is owned by exactly one session and is not safe for
// concurrent mutation; the pipeline runs one turn at a time.
package model
