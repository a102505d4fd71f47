package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"slackbridge/completion"
	"slackbridge/config"
	"slackbridge/errors"
	"slackbridge/health"
	"slackbridge/messaging"
	"slackbridge/server"
	"slackbridge/server/handlers"
	"slackbridge/server/metrics"
)

var (
	configFile   = flag.String("config", "config.yaml", "Path to configuration file")
	validateOnly = flag.Bool("validate", false, "Validate configuration and exit")
	versionFlag  = flag.Bool("version", false, "Print version and exit")
)

// validateTimeout bounds the live credential checks performed at startup.
const validateTimeout = 30 * time.Second

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("slackbridge %s\n", health.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Just validate and exit if requested
	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Warning: Failed to sync logger: %v\n", syncErr)
		}
	}()

	// Set global logger
	errors.SetLogger(logger)

	// Construct and validate the upstream clients. A failure here does not
	// stop the server: it still serves /health reporting what went wrong.
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	completionClient, completionCheck := initCompletion(ctx, cfg, logger)
	messagingClient, messagingCheck := initMessaging(ctx, cfg, logger)
	cancel()

	m := metrics.NewMetrics()
	reporter := health.NewReporter(completionCheck, messagingCheck)
	healthHandler := handlers.NewHealthHandler(reporter, logger)

	var events http.Handler
	if completionCheck.Configured && messagingCheck.Configured {
		events = handlers.NewEventsHandler(
			completionClient,
			messagingClient,
			cfg.Slack.SigningSecret,
			messagingClient.Identity().BotUserID,
			logger,
			m,
		)
	}

	router := server.NewRouter(healthHandler, events, m, cfg, logger)
	srv := server.NewServer(cfg.Server, router, logger)

	// Graceful shutdown infrastructure
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		stop()
	}()

	if err := srv.Start(runCtx); err != nil {
		logger.Fatal("Server startup or runtime error", zap.Error(err))
	}
}

// initCompletion builds and live-validates the OpenAI client, capturing
// any failure for the health report.
func initCompletion(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*completion.Client, health.Check) {
	client, err := completion.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	if err == nil {
		err = client.Validate(ctx)
	}
	if err != nil {
		logger.Error("OpenAI client initialization failed", zap.Error(err))
		return nil, health.Check{Err: err}
	}
	return client, health.Check{Configured: true}
}

// initMessaging builds and live-validates the Slack client, capturing any
// failure for the health report.
func initMessaging(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*messaging.Client, health.Check) {
	client, err := messaging.New(cfg.Slack.BotToken, logger)
	if err == nil {
		err = client.Validate(ctx)
	}
	if err != nil {
		logger.Error("Slack client initialization failed", zap.Error(err))
		return nil, health.Check{Err: err}
	}
	return client, health.Check{Configured: true}
}

// buildLogger constructs the zap logger from the logging configuration.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "text" {
		zc.Encoding = "console"
	}
	return zc.Build()
}
