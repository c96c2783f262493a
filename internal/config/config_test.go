// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Local.OllamaURL)
	assert.Equal(t, "qwen3:4b", cfg.Local.OllamaModel)
	assert.Equal(t, "gpt-4o-mini", cfg.Hosted.Model)
	assert.InDelta(t, 0.7, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
	assert.True(t, cfg.Chat.Stream)
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
}

func TestLoadFromPath_SparseFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
backend = "hosted"

[hosted]
model = "gpt-4o"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "hosted", cfg.Backend)
	assert.Equal(t, "gpt-4o", cfg.Hosted.Model)
	// Unset values come from defaults.
	assert.InDelta(t, 0.7, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Local.OllamaURL)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
}

func TestLoadFromPath_ExplicitZeroSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[hosted]
temperature = 0.0

[chat]
history_window = 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// Zero is a deliberate setting here, not a missing key.
	assert.InDelta(t, 0.0, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, 0, cfg.Chat.HistoryWindow)
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = ["), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CAMPUSCHAT_BACKEND", "Hosted")
	t.Setenv("CAMPUSCHAT_OLLAMA_MODEL", "llama3.2")
	t.Setenv("CAMPUSCHAT_TEMPERATURE", "0.3")
	t.Setenv("CAMPUSCHAT_HISTORY_WINDOW", "10")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "hosted", cfg.Backend)
	assert.Equal(t, "llama3.2", cfg.Local.OllamaModel)
	assert.InDelta(t, 0.3, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
}

func TestApplyEnvOverrides_BadValuesIgnored(t *testing.T) {
	t.Setenv("CAMPUSCHAT_TEMPERATURE", "hot")
	t.Setenv("CAMPUSCHAT_HISTORY_WINDOW", "many")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.InDelta(t, 0.7, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, 6, cfg.Chat.HistoryWindow)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := Default()
	cfg.Backend = "cloud9"
	cfg.Hosted.Temperature = 5.0
	cfg.Hosted.MaxTokens = -1
	cfg.Chat.HistoryWindow = -3

	cfg.Validate()

	assert.Equal(t, "local", cfg.Backend)
	assert.InDelta(t, 2.0, cfg.Hosted.Temperature, 1e-9)
	assert.Equal(t, 0, cfg.Hosted.MaxTokens)
	assert.Equal(t, 0, cfg.Chat.HistoryWindow)

	cfg.Hosted.Temperature = -0.5
	cfg.Validate()
	assert.InDelta(t, 0.0, cfg.Hosted.Temperature, 1e-9)
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend = "hosted"
	cfg.Hosted.Model = "gpt-4o"
	require.NoError(t, SaveToPath(cfg, path))

	// Config files hold nothing world-readable.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "hosted", loaded.Backend)
	assert.Equal(t, "gpt-4o", loaded.Hosted.Model)
}
