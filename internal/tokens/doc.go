// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tokens provides token counting for usage accounting.
//
// Two counters coexist because the two backends have different accuracy
// needs:
//
//   - Heuristic: a fast whitespace-word count scaled by a constant factor.
//     Used for the local backend, where tokens carry no cost and a rough
//     number is enough for the stats line.
//   - Tiktoken: a real subword tokenizer matched to the requested model.
//     Used for the hosted backend, where token counts feed directly into
//     dollar cost estimates.
//
// Both counters are deterministic, never touch the network, and return 0
// for empty text.
package tokens
