// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package knowledge loads the college information file embedded in the
// assistant's system prompt.
//
// The file is plain text maintained by staff. A missing or unreadable
// file degrades to a fixed fallback notice instead of an error, so the
// assistant always has something to say about its knowledge state. An
// optional Watcher hot-reloads the prompt when the file changes on
// disk, letting staff update campus information without restarting the
// assistant.
package knowledge
