// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates a conversation turn across the available
// inference backends.
//
// A Backend abstracts one way of producing a reply: the local backend
// talks to Ollama and is free to run, the hosted backend talks to the
// OpenAI API and is metered. The Orchestrator owns the turn lifecycle:
// record the user message, trim the history to the configured window,
// run the backend (streaming or not), time it, account tokens and cost,
// and fold the result back into the conversation.
//
// # Usage
//
//	backend := chat.NewLocalBackend(ollamaClient, "qwen3:4b")
//	orch := chat.NewOrchestrator(backend, 6)
//	msg := orch.RunTurn(ctx, conv, "what are the library hours?", chat.TurnOptions{
//		Stream:     true,
//		OnFragment: func(s string) { fmt.Print(s) },
//	})
//
// RunTurn never returns an error: failures degrade into an assistant
// message describing the problem, with the error recorded on the turn's
// stats. The conversation always advances.
package chat
