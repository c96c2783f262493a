// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete campuschat configuration.
type Config struct {
	// Backend selects where turns are served: "local" (Ollama) or
	// "hosted" (OpenAI).
	Backend string `toml:"backend"`

	// Local (Ollama) configuration
	Local LocalConfig `toml:"local"`

	// Hosted (OpenAI) configuration
	Hosted HostedConfig `toml:"hosted"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat"`

	// Knowledge file configuration
	Knowledge KnowledgeConfig `toml:"knowledge"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// LocalConfig contains local Ollama configuration.
type LocalConfig struct {
	// OllamaURL is the URL of the Ollama server
	OllamaURL string `toml:"ollama_url"`
	// OllamaModel is the model to use with Ollama
	OllamaModel string `toml:"ollama_model"`
}

// HostedConfig contains hosted provider (OpenAI) configuration.
// The API key is never stored here; it comes from OPENAI_API_KEY.
type HostedConfig struct {
	// Model is the OpenAI model to use
	Model string `toml:"model"`
	// Temperature is the sampling temperature (0.0-2.0)
	Temperature float64 `toml:"temperature"`
	// MaxTokens caps completion length, 0 = no cap
	MaxTokens int `toml:"max_tokens"`
}

// ChatConfig contains conversation behavior settings.
type ChatConfig struct {
	// HistoryWindow is the number of recent messages sent with each
	// turn, in addition to the system prompt.
	HistoryWindow int `toml:"history_window"`
	// Stream enables incremental reply delivery
	Stream bool `toml:"stream"`
}

// KnowledgeConfig locates the college information file embedded in the
// system prompt.
type KnowledgeConfig struct {
	// Path to the knowledge file (empty = ~/.campuschat/info.txt)
	Path string `toml:"path"`
	// Watch enables hot-reload when the file changes on disk
	Watch bool `toml:"watch"`
}

// UIConfig contains terminal display configuration.
type UIConfig struct {
	// ShowCost displays per-turn cost information
	ShowCost bool `toml:"show_cost"`
	// ShowTokens displays per-turn token counts
	ShowTokens bool `toml:"show_tokens"`
	// Markdown renders assistant replies as markdown after streaming
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values: a working
// local-only setup with the hosted side ready once a key is present.
func Default() *Config {
	return &Config{
		Backend: "local",

		Local: LocalConfig{
			OllamaURL:   "http://127.0.0.1:11434",
			OllamaModel: "qwen3:4b",
		},

		Hosted: HostedConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   0,
		},

		Chat: ChatConfig{
			HistoryWindow: 6,
			Stream:        true,
		},

		Knowledge: KnowledgeConfig{
			Path:  "",
			Watch: true,
		},

		UI: UIConfig{
			ShowCost:   true,
			ShowTokens: true,
			Markdown:   true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the campuschat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".campuschat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// KnowledgePath returns the configured knowledge file path, or the
// default under the config directory when unset.
func (c *Config) KnowledgePath() (string, error) {
	if c.Knowledge.Path != "" {
		return c.Knowledge.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "info.txt"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when no file exists. Environment overrides are applied last,
// then values are validated and clamped.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.Validate()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path. A missing
// file is not an error; defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
		fillDefaults(cfg, md)
	}

	cfg.ApplyEnvOverrides()
	cfg.Validate()
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults, so a sparse
// config file behaves like a complete one. Zero is a valid sampling
// temperature and history window, so those fall back only when the key
// is absent from the file, not when it is an explicit zero.
func fillDefaults(cfg *Config, md toml.MetaData) {
	defaults := Default()

	if cfg.Backend == "" {
		cfg.Backend = defaults.Backend
	}
	if cfg.Local.OllamaURL == "" {
		cfg.Local.OllamaURL = defaults.Local.OllamaURL
	}
	if cfg.Local.OllamaModel == "" {
		cfg.Local.OllamaModel = defaults.Local.OllamaModel
	}
	if cfg.Hosted.Model == "" {
		cfg.Hosted.Model = defaults.Hosted.Model
	}
	if !md.IsDefined("hosted", "temperature") {
		cfg.Hosted.Temperature = defaults.Hosted.Temperature
	}
	if !md.IsDefined("chat", "history_window") {
		cfg.Chat.HistoryWindow = defaults.Chat.HistoryWindow
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies CAMPUSCHAT_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CAMPUSCHAT_BACKEND"); v != "" {
		c.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CAMPUSCHAT_OLLAMA_URL"); v != "" {
		c.Local.OllamaURL = v
	}
	if v := os.Getenv("CAMPUSCHAT_OLLAMA_MODEL"); v != "" {
		c.Local.OllamaModel = v
	}
	if v := os.Getenv("CAMPUSCHAT_MODEL"); v != "" {
		c.Hosted.Model = v
	}
	if v := os.Getenv("CAMPUSCHAT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Hosted.Temperature = f
		}
	}
	if v := os.Getenv("CAMPUSCHAT_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.HistoryWindow = n
		}
	}
	if v := os.Getenv("CAMPUSCHAT_KNOWLEDGE_PATH"); v != "" {
		c.Knowledge.Path = v
	}
	if v := os.Getenv("CAMPUSCHAT_NO_STREAM"); v != "" {
		c.Chat.Stream = false
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate clamps out-of-range values to their valid bounds. A
// hand-edited config never blocks startup.
func (c *Config) Validate() {
	if c.Backend != "local" && c.Backend != "hosted" {
		c.Backend = "local"
	}

	if _, err := url.Parse(c.Local.OllamaURL); err != nil || c.Local.OllamaURL == "" {
		c.Local.OllamaURL = "http://127.0.0.1:11434"
	}

	// Sampling temperature valid range is 0.0-2.0.
	if c.Hosted.Temperature < 0 {
		c.Hosted.Temperature = 0
	}
	if c.Hosted.Temperature > 2 {
		c.Hosted.Temperature = 2
	}

	if c.Hosted.MaxTokens < 0 {
		c.Hosted.MaxTokens = 0
	}

	if c.Chat.HistoryWindow < 0 {
		c.Chat.HistoryWindow = 0
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# campuschat configuration file")
	fmt.Fprintln(file, "# Generated by campuschat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
