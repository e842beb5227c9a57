package main

import (
	"fmt"

	"sleuth/internal/config"
	"sleuth/internal/investigate"
	"sleuth/internal/llm"
	"sleuth/internal/logging"
	"sleuth/internal/oracle"
	"sleuth/internal/store"
	"sleuth/internal/vector"
)

// app holds the wired-up components shared by every command.
type app struct {
	cfg    config.Settings
	store  store.Store
	engine *investigate.Engine
}

// newApp loads configuration, initializes logging, and wires the store,
// vector index repository, Ollama client, and engine together.
func newApp() (*app, error) {
	cfg := config.Default()
	if rootFlags.configPath != "" {
		loaded, err := config.LoadFromPath(rootFlags.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if rootFlags.dbPath != "" {
		cfg.DBPath = rootFlags.dbPath
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.LogFormat = rootFlags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client, err := llm.NewClient(cfg.OllamaHost, cfg.EmbedModel, cfg.ChatModel)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("ollama client: %w", err)
	}

	repo := vector.NewRepository(cfg.IndexMaxCases, cfg.IndexMaxAge.Std())
	gen := oracle.NewGenerator(client)
	eng := investigate.New(st, repo, client, gen, cfg, client.ChatModel())

	return &app{cfg: cfg, store: st, engine: eng}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
