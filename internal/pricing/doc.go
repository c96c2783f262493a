// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pricing maps model identifiers and token counts to dollar costs.
//
// The price table is static, process-wide, and read-only; unknown models
// fall back to a designated default entry so cost calculation never fails.
// All prices are USD per 1000 tokens.
package pricing
