package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/jobs-newsroom/internal/config"
	"github.com/jonathan/jobs-newsroom/internal/coverage"
	"github.com/jonathan/jobs-newsroom/internal/db"
	"github.com/jonathan/jobs-newsroom/internal/generator"
	"github.com/jonathan/jobs-newsroom/internal/llm"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/pipeline"
	"github.com/jonathan/jobs-newsroom/internal/rotation"
	"go.uber.org/zap"
)

// loadConfig reads configuration honoring the --config flag
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// connectDB opens the pool and verifies the connection
func connectDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// llmConfig maps the newsroom config onto the model backend config
func llmConfig(cfg *config.Config) *llm.Config {
	lc := llm.ConfigFor(llm.Provider(cfg.GeneratorProvider)).WithModel(cfg.GeneratorModel)
	if cfg.GatewayURL != "" {
		lc.GatewayURL = cfg.GatewayURL
	}
	return lc
}

// newClient builds the model backend. A non-empty replayPath replays a recorded
// response instead of calling a provider.
func newClient(ctx context.Context, cfg *config.Config, replayPath string) (llm.Client, error) {
	if replayPath != "" {
		return newReplayClient(replayPath)
	}
	if err := cfg.RequireGenerator(); err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.GeneratorAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.GeneratorProvider, err)
	}
	return client, nil
}

// pipelineOptions maps the newsroom config onto orchestrator options
func pipelineOptions(cfg *config.Config, generatorName string) pipeline.Options {
	return pipeline.Options{
		App:        cfg.ArticleApp,
		Limit:      cfg.RoundupLimit,
		CommitMode: pipeline.CommitMode(cfg.CommitMode),
		Cadence:    rotation.NewCadence(cfg.MinRunInterval.Std()),
		Windows: coverage.Windows{
			Spotlight: cfg.SpotlightWindow.Std(),
			Roundup:   cfg.RoundupWindow.Std(),
		},
		GeneratorName: generatorName,
	}
}

// newGenerator wraps client with the configured per-call timeout
func newGenerator(cfg *config.Config, client llm.Client) (*generator.Generator, error) {
	if err := generator.CheckTemplates(); err != nil {
		return nil, err
	}
	return generator.New(client, cfg.GeneratorTimeout.Std()), nil
}

// replayClient returns a recorded model response; used for offline dry runs
type replayClient struct {
	body string
}

func newReplayClient(path string) (*replayClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	return &replayClient{body: string(data)}, nil
}

func (c *replayClient) GenerateJSON(ctx context.Context, _ llm.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.body, nil
}

func (c *replayClient) Model() string { return "replay" }
func (c *replayClient) Close() error  { return nil }
