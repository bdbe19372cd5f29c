package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mvarela/armada/pkg/agents"
	"github.com/mvarela/armada/pkg/config"
	"github.com/mvarela/armada/pkg/dataset"
	"github.com/mvarela/armada/pkg/model/gemini"
	"github.com/mvarela/armada/pkg/pipeline"
	"github.com/mvarela/armada/pkg/sandbox"
	sandboxdocker "github.com/mvarela/armada/pkg/sandbox/docker"
	sandboxlocal "github.com/mvarela/armada/pkg/sandbox/local"
	"github.com/mvarela/armada/pkg/server"
	storesqlite "github.com/mvarela/armada/pkg/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	// Setup logger.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	// Config.
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("Invalid config", "field", e.Field, "message", e.Message)
		}
		os.Exit(1)
	}
	execTimeout, err := cfg.ExecTimeout()
	if err != nil {
		slog.Error("Invalid sandbox timeout", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize dataset.
	os.MkdirAll(filepath.Dir(cfg.Dataset.DB), 0755)
	data, err := dataset.Open(cfg.Dataset.DB)
	if err != nil {
		slog.Error("Failed to open dataset", "error", err)
		os.Exit(1)
	}
	defer data.Close()
	if cfg.Dataset.CSV != "" {
		if err := data.LoadCSV(ctx, cfg.Dataset.CSV, cfg.Dataset.Table); err != nil {
			slog.Error("Failed to load dataset CSV", "csv", cfg.Dataset.CSV, "error", err)
			os.Exit(1)
		}
		slog.Info("Dataset loaded", "csv", cfg.Dataset.CSV, "table", cfg.Dataset.Table)
	}
	schema, err := data.Schema(ctx)
	if err != nil {
		slog.Error("Failed to read dataset schema", "error", err)
		os.Exit(1)
	}

	// Initialize history store.
	os.MkdirAll(filepath.Dir(cfg.History.DB), 0755)
	history, err := storesqlite.New(cfg.History.DB)
	if err != nil {
		slog.Error("Failed to initialize history store", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	// Initialize model provider.
	provider, err := gemini.New(ctx, apiKey)
	if err != nil {
		slog.Error("Failed to initialize Gemini provider", "error", err)
		os.Exit(1)
	}

	// Initialize sandbox runner.
	var runner sandbox.Runner
	switch cfg.Sandbox.Backend {
	case config.BackendDocker:
		dockerRunner, err := sandboxdocker.New(cfg.Sandbox.Image)
		if err != nil {
			slog.Error("Failed to initialize docker sandbox", "error", err)
			os.Exit(1)
		}
		defer dockerRunner.Close()
		runner = dockerRunner
	default:
		runner = sandboxlocal.New(cfg.Sandbox.Interpreter)
	}
	slog.Info("Sandbox ready", "backend", cfg.Sandbox.Backend, "timeout", execTimeout)

	// Build the pipeline engine.
	engine := pipeline.New(
		agents.NewModerator(provider, cfg.Models.Moderator, schema),
		data,
		agents.NewContextualizer(provider, cfg.Models.Contextualizer),
		agents.NewCoder(provider, cfg.Models.Coder),
		runner,
		execTimeout,
	)

	// Start server.
	srv := server.New(engine, history)
	if err := srv.Start(cfg.Addr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
