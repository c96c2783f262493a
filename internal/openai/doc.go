// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the HTTP client for the OpenAI chat
// completions API.
//
// The client reads its credential from the OPENAI_API_KEY environment
// variable at construction time and fails fast when the key is missing
// or still set to the setup placeholder: no network request is made on
// an unconfigured client. Responses carry a usage block when the
// server reports one; streaming responses arrive as Server-Sent Events
// terminated by a [DONE] marker.
//
// # Key Types
//
//   - Client: authenticated API client with rate limiting
//   - ChatResponse: completion plus optional token usage
//   - SSEReader: event parser for streaming responses
//
// Secure logging rules apply throughout: requests are logged as method
// and path only, and the API key is never written anywhere, not even
// partially. Use KeyFingerprint for a loggable identifier.
package openai
