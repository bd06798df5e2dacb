package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/pipeline"
	"github.com/jonathan/jobs-newsroom/internal/server"
	"github.com/jonathan/jobs-newsroom/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger server",
	Long: `Start an HTTP server exposing the generation trigger at /api/cron/generate-news,
plus /health and /metrics. A scheduler calls the trigger with the cron secret.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	auth, err := cfg.TriggerAuth()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	client, err := newClient(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	gen, err := newGenerator(cfg, client)
	if err != nil {
		return err
	}
	orch := pipeline.New(database, gen, pipelineOptions(cfg, cfg.GeneratorProvider), logger, metrics)

	rl := ratelimit.DefaultConfig()
	rl.Enabled = cfg.RateLimitEnabled
	rl.RPS = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst
	rl.Whitelist = ratelimit.ParseIPList(cfg.RateLimitWhitelist)

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		Auth:      auth,
		RateLimit: rl,
		// Leave headroom over the generator call for the store round trips
		RunTimeout:  cfg.GeneratorTimeout.Std() + 30*time.Second,
		HealthCheck: database.Ping,
		Gatherer:    registry,
	}, orch, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	orch.OnProgress(srv.PublishProgress)

	logger.Info("trigger server configured",
		zap.String(observability.FieldModel, client.Model()),
		zap.String(observability.FieldCommitMode, cfg.CommitMode),
		zap.Bool("auth_disabled", auth.AllowUnauthenticated))

	return srv.Start(ctx)
}
