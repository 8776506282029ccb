package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"relaychat/catalog"
	"relaychat/chat"
	"relaychat/config"
	"relaychat/model"
	"relaychat/orchestrator"
	"relaychat/provider"
	"relaychat/storage"
	"relaychat/ui"
)

const Version = "v0.1.0"

func main() {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	cfg, err := config.Load()
	if err != nil {
		red.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config.InitDebugLog(cfg.DataDir())

	for _, w := range cfg.Warnings {
		yellow.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	registry := provider.InitializeProviders(cfg)
	if config.Debug {
		pingOllama(registry)
	}

	cat, err := catalog.FromConfig(cfg.Models)
	if err != nil {
		red.Fprintf(os.Stderr, "Invalid model catalog: %v\n", err)
		os.Exit(1)
	}

	orch := orchestrator.New(cat, registry, cfg.DefaultModel)
	if _, ok := cat.Get(cfg.FallbackModel); !ok {
		yellow.Fprintf(os.Stderr, "warning: fallback model %q is not in the catalog; fallback disabled\n", cfg.FallbackModel)
	}

	store, session, ok := openSession(cfg, orch)
	if !ok {
		os.Exit(1)
	}
	defer store.Close()

	p := tea.NewProgram(
		ui.NewAppView(cfg, session, Version),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		red.Fprintf(os.Stderr, "Error running relaychat: %v\n", err)
		os.Exit(1)
	}
}

// openSession opens the conversation store and the user's latest
// conversation. A failure is shown full screen, and the user may retry, for
// example after a remote database comes back.
func openSession(cfg *config.Config, orch *orchestrator.Orchestrator) (model.ConversationStore, *chat.Session, bool) {
	for {
		store, err := storage.Open(cfg.Database, cfg.CredentialStore, cfg.DataDir())
		if err != nil {
			if !showStartupError("Could not open the conversation store", err) {
				return nil, nil, false
			}
			continue
		}

		session := chat.NewSession(orch, store, orchestrator.DefaultFallbackPolicy(cfg.FallbackModel))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = session.Start(ctx)
		cancel()
		if err == nil {
			return store, session, true
		}

		store.Close()
		if !showStartupError("Could not load conversations", err) {
			return nil, nil, false
		}
	}
}

// showStartupError reports err full screen and returns whether the user
// asked to retry.
func showStartupError(title string, err error) bool {
	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Main] %s: %v", title, err)
	}
	final, runErr := tea.NewProgram(ui.NewStartupError(title, err, true), tea.WithAltScreen()).Run()
	if runErr != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", title, err)
		return false
	}
	m, ok := final.(ui.StartupError)
	return ok && m.Retry()
}

// pingOllama logs whether a configured Ollama server answers.
func pingOllama(registry *provider.Registry) {
	if config.DebugLog == nil {
		return
	}
	p, ok := registry.Get("ollama")
	if !ok {
		return
	}
	o, ok := p.(*provider.OllamaProvider)
	if !ok || !o.IsAvailable() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := o.Ping(ctx); err != nil {
		config.DebugLog.Printf("[Main] Ollama ping failed: %v", err)
		return
	}
	config.DebugLog.Printf("[Main] Ollama reachable")
}
