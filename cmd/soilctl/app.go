package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/soil-advisor/internal/analysis"
	"github.com/ashureev/soil-advisor/internal/apiclient"
	"github.com/ashureev/soil-advisor/internal/auth"
	"github.com/ashureev/soil-advisor/internal/config"
	"github.com/ashureev/soil-advisor/internal/credential"
	"github.com/ashureev/soil-advisor/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app wires the client components for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	kv       store.KV
	creds    *credential.Store
	client   *apiclient.Client
	auth     *auth.Orchestrator
	analysis *analysis.Pipeline
}

// loadConfig reads the environment and applies flag overrides. Validation
// runs once, after the overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := config.FromEnv()
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIBaseURL, _ = flags.GetString("api-url")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.LogLevel = config.ParseLevel(level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	kv, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	if err := kv.Ping(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("credential store health check: %w", err)
	}

	creds := credential.New(kv)
	client := apiclient.New(cfg.APIBaseURL, creds, apiclient.WithLogger(logger))
	orch := auth.New(client, creds, logger)
	client.OnUnauthorized(orch.ForceLogout)

	if err := orch.Init(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		creds:    creds,
		client:   client,
		auth:     orch,
		analysis: analysis.New(client, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Error("Failed to close credential store", "error", err)
	}
}

// requireLogin fails fast when no session is cached.
func (a *app) requireLogin() error {
	if _, ok := a.auth.State().(auth.Authenticated); !ok {
		return fmt.Errorf("not logged in, run %q first", appName+" login")
	}
	return nil
}
