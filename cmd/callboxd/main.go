package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"callbox/internal/config"
	"callbox/internal/daemon"
	"callbox/internal/logging"
	"callbox/internal/normalizer"
	"callbox/internal/pipeline"
	"callbox/internal/records"
	"callbox/internal/services/chat"
	"callbox/internal/services/whisper"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	// Optional .env for API keys during local development.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := records.Open(cfg)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return
	}

	orchestrator := pipeline.New(
		cfg,
		store,
		normalizer.New(cfg),
		whisper.NewClient(cfg.STT),
		chat.NewClient(cfg.LLM),
		logger,
	)

	d, err := daemon.New(cfg, store, orchestrator, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("callboxd shutting down")
}
