// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with a local
// Ollama server.
//
// The client covers the three calls the chat pipeline needs: a health
// check, model listing (with a static fallback list when the server is
// unreachable), and chat completion in both streaming (NDJSON) and
// non-streaming form. Ollama versions differ in where the reply text
// lives in a non-streaming response; the decoder tolerates both the
// nested message shape and the top-level content shape.
//
// Ollama runs locally over plain HTTP and requires no credentials.
package ollama
