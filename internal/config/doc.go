// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// campuschat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation. Locations in order of precedence:
//
//   - CAMPUSCHAT_* environment variables (plus OPENAI_API_KEY)
//   - ~/.campuschat/config.toml
//   - Built-in defaults
//
// Missing files are not an error; the defaults describe a working
// local-only setup. Validation clamps out-of-range values rather than
// rejecting the file, so a hand-edited config never blocks startup.
package config
