// campuschat - a bilingual college information assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/helwanlabs/campuschat/internal/chat"
	"github.com/helwanlabs/campuschat/internal/config"
	"github.com/helwanlabs/campuschat/internal/knowledge"
	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/ollama"
	"github.com/helwanlabs/campuschat/internal/openai"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)

	statsStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	promptLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))
)

func main() {
	var (
		backendFlag = flag.String("backend", "", "backend to use: local or hosted (overrides config)")
		modelFlag   = flag.String("model", "", "model to use (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("campuschat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *backendFlag != "" {
		cfg.Backend = strings.ToLower(*backendFlag)
		cfg.Validate()
	}

	if err := run(cfg, *modelFlag); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, modelOverride string) error {
	ctx := context.Background()

	backend, err := buildBackend(ctx, cfg, modelOverride)
	if err != nil {
		return err
	}

	// System prompt carries the college knowledge file; a missing file
	// degrades to a fixed notice, never an error.
	knowledgePath, err := cfg.KnowledgePath()
	if err != nil {
		return err
	}
	systemPrompt := knowledge.BuildSystemPrompt(knowledge.Load(knowledgePath))

	conv := model.NewConversation(systemPrompt, backend.Estimator())

	// Reloads arrive on the watcher goroutine; they are staged here and
	// applied on this goroutine before the next turn, since the
	// conversation is single-owner.
	var promptMu sync.Mutex
	var pendingPrompt string
	if cfg.Knowledge.Watch {
		watcher, werr := knowledge.NewWatcher(knowledgePath, func(prompt string) {
			promptMu.Lock()
			pendingPrompt = prompt
			promptMu.Unlock()
		})
		if werr == nil {
			defer watcher.Close()
		}
		// A failed watcher just means no hot-reload; the loaded prompt stands.
	}
	applyReload := func() {
		promptMu.Lock()
		prompt := pendingPrompt
		pendingPrompt = ""
		promptMu.Unlock()
		if prompt != "" {
			conv.SetSystemPrompt(prompt)
		}
	}

	orch := chat.NewOrchestrator(backend, cfg.Chat.HistoryWindow)

	printWelcome(backend)
	return inputLoop(ctx, cfg, orch, conv, applyReload)
}

// buildBackend constructs the configured backend. Hosted backends fail
// fast here, before the first prompt, when no credential is present.
func buildBackend(ctx context.Context, cfg *config.Config, modelOverride string) (chat.Backend, error) {
	switch cfg.Backend {
	case "hosted":
		client, err := openai.NewClientFromEnv()
		if err != nil {
			return nil, fmt.Errorf("hosted backend unavailable: %w (set %s)", err, openai.EnvAPIKey)
		}
		mdl := cfg.Hosted.Model
		if modelOverride != "" {
			mdl = modelOverride
		}
		client.WithModel(mdl).WithTemperature(cfg.Hosted.Temperature).WithMaxTokens(cfg.Hosted.MaxTokens)
		return chat.NewHostedBackend(client)

	default:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Local.OllamaURL,
			DefaultModel: cfg.Local.OllamaModel,
		})
		if err := client.CheckRunning(ctx); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(
				"Warning: Ollama does not appear to be running at "+cfg.Local.OllamaURL))
		}
		mdl := cfg.Local.OllamaModel
		if modelOverride != "" {
			mdl = modelOverride
		}
		return chat.NewLocalBackend(client, mdl), nil
	}
}

// =============================================================================
// INPUT LOOP
// =============================================================================

func inputLoop(ctx context.Context, cfg *config.Config, orch *chat.Orchestrator, conv *model.Conversation, applyReload func()) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	renderer := newRenderer(cfg)

	for {
		input, err := line.Prompt(promptLabel.Render("You") + " > ")
		if err != nil {
			// Ctrl-C / Ctrl-D end the session.
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, input, orch, conv); quit {
				break
			}
			continue
		}

		applyReload()
		runTurn(ctx, cfg, orch, conv, input, renderer)
	}

	printSessionTotals(conv)
	return nil
}

// runTurn streams one exchange to the terminal and prints its stats line.
func runTurn(ctx context.Context, cfg *config.Config, orch *chat.Orchestrator, conv *model.Conversation, input string, renderer *glamour.TermRenderer) {
	fmt.Println()

	var streamedAny bool
	msg := orch.RunTurn(ctx, conv, input, chat.TurnOptions{
		Stream: cfg.Chat.Stream,
		OnFragment: func(s string) {
			streamedAny = true
			fmt.Print(s)
		},
	})
	if streamedAny {
		fmt.Println()
	}

	// Re-render the finished reply as markdown when enabled; the raw
	// stream above keeps the user company while tokens arrive.
	if renderer != nil {
		if out, err := renderer.Render(msg.Content); err == nil {
			fmt.Print(out)
		}
	} else if !streamedAny {
		fmt.Println(msg.Content)
	}

	fmt.Println(statsStyle.Render(formatStats(msg.Stats, cfg) + "  ·  " + formatTotals(conv)))
	fmt.Println()
}

func newRenderer(cfg *config.Config) *glamour.TermRenderer {
	if !cfg.UI.Markdown {
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// =============================================================================
// COMMANDS
// =============================================================================

func handleCommand(ctx context.Context, input string, orch *chat.Orchestrator, conv *model.Conversation) (quit bool) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true

	case "/models":
		printModels(ctx, orch.Backend())

	case "/stats":
		printSessionTotals(conv)

	case "/help":
		fmt.Println("Commands: /models  /stats  /help  /quit")

	default:
		fmt.Println(errorStyle.Render("Unknown command. Try /help"))
	}
	return false
}

func printModels(ctx context.Context, backend chat.Backend) {
	if local, ok := backend.(*chat.LocalBackend); ok {
		fmt.Println("Available local models:")
		for _, name := range local.ListModels(ctx) {
			marker := "  "
			if name == backend.Model() {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return
	}
	fmt.Printf("Hosted model: %s\n", backend.Model())
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(backend chat.Backend) {
	banner := fmt.Sprintf("campuschat %s\nbackend: %s  model: %s", Version, backend.Name(), backend.Model())
	fmt.Println(bannerStyle.Render(banner))
	fmt.Println(statsStyle.Render("Ask about the college in Arabic or English. /help for commands."))
	fmt.Println()
}

// formatStats renders the per-turn accounting line. Unknown values are
// shown as unavailable, not as zero.
func formatStats(stats *model.TurnStats, cfg *config.Config) string {
	if stats == nil {
		return ""
	}

	parts := make([]string, 0, 4)
	if cfg.UI.ShowTokens {
		if stats.Tokens != nil {
			parts = append(parts, fmt.Sprintf("%d tokens", *stats.Tokens))
		} else {
			parts = append(parts, "tokens n/a")
		}
	}
	parts = append(parts, fmt.Sprintf("%.2fs", stats.LatencySeconds()))
	if cfg.UI.ShowCost {
		if cost, ok := stats.CostUSD(); ok {
			parts = append(parts, fmt.Sprintf("$%.6f", cost))
		} else {
			parts = append(parts, "Free")
		}
	}
	if stats.Errored() {
		parts = append(parts, "error: "+stats.Err)
	}
	return strings.Join(parts, " | ")
}

// formatTotals renders the compact running session summary shown after
// every turn.
func formatTotals(conv *model.Conversation) string {
	agg := conv.Aggregates()
	return fmt.Sprintf("session: %d tokens $%.6f", agg.TotalTokens, agg.TotalCost)
}

func printSessionTotals(conv *model.Conversation) {
	agg := conv.Aggregates()
	if conv.IsEmpty() {
		return
	}

	totals := fmt.Sprintf(
		"Session: %d messages | %d tokens | $%.6f | avg %.2fs/turn",
		conv.MessageCount(), agg.TotalTokens, agg.TotalCost, agg.AvgLatency.Seconds(),
	)
	fmt.Println()
	fmt.Println(statsStyle.Render(totals))
}
