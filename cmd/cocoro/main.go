// Command cocoro runs the emotion-aware companion in the terminal.
//
// Default is the interactive chat widget. -once runs a single turn and
// prints the reply to stdout, for piping and smoke checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/cocoro-ai/cocoro/internal/classifier"
	"github.com/cocoro-ai/cocoro/internal/config"
	"github.com/cocoro-ai/cocoro/internal/engine"
	"github.com/cocoro-ai/cocoro/internal/intervention"
	"github.com/cocoro-ai/cocoro/internal/model"
	"github.com/cocoro-ai/cocoro/internal/prompt"
	"github.com/cocoro-ai/cocoro/internal/session"
	"github.com/cocoro-ai/cocoro/internal/tui"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	once := flag.String("once", "", "run a single turn with this message and exit")
	export := flag.String("export", "", "write the session log JSON here on exit (overrides config)")
	flag.Parse()

	// .env is optional; real deployments set the key in the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("cocoro: %v", err)
	}
	if *export != "" {
		cfg.Session.ExportPath = *export
	}

	apiKey := os.Getenv(cfg.API.KeyEnv)
	if apiKey == "" {
		log.Fatalf("cocoro: %s not set", cfg.API.KeyEnv)
	}

	client := model.NewOpenAIClient(&model.OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.API.BaseURL,
		Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		MaxRetries: 2,
		MaxTokens:  cfg.API.MaxTokens,
	})

	preferences := make([]model.Candidate, len(cfg.Models.Preferences))
	for i, p := range cfg.Models.Preferences {
		preferences[i] = model.Candidate(p)
	}

	resolver := model.NewResolver(&model.ResolverConfig{
		Client:          client,
		Preferences:     preferences,
		FallbackText:    cfg.Models.FallbackText,
		AvailabilityTTL: time.Duration(cfg.Models.AvailabilityTTLMinutes) * time.Minute,
	})

	store, err := session.Open(cfg.Session.LogDB)
	if err != nil {
		// The store is a mirror, not a dependency; chat works without it.
		log.Printf("cocoro: session store unavailable: %v", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	eng := engine.New(&engine.Config{
		Classifier: classifier.New(cfg),
		Router:     intervention.NewRouter(cfg, nil),
		Prompts:    prompt.NewBuilder(cfg),
		Resolver:   resolver,
		Store:      store,
		AppConfig:  cfg,
	})

	st := session.NewState()

	if *once != "" {
		runOnce(eng, st, cfg, *once)
		return
	}

	program := tea.NewProgram(tui.New(eng, st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("cocoro: %v", err)
	}
}

// runOnce processes one turn without the widget.
func runOnce(eng *engine.Engine, st *session.State, cfg *config.Config, message string) {
	result := eng.Respond(context.Background(), st, message)

	fmt.Println(result.Display)
	fmt.Fprintf(os.Stderr, "emotion=%s intent=%s module=%s mode=%d model=%s fallback=%v\n",
		result.Perception.Emotion, result.Perception.Intent, result.ModuleKey,
		int(result.Mode), result.Candidate, result.Fallback)

	if cfg.Session.ExportPath != "" {
		if err := st.ExportLogTo(cfg.Session.ExportPath); err != nil {
			log.Printf("cocoro: %v", err)
		}
	}
}
