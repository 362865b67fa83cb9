package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"scrivener/internal/cartographer"
	"scrivener/internal/config"
	"scrivener/internal/daemon"
	"scrivener/internal/logging"
	"scrivener/internal/outline"
	"scrivener/internal/pipeline"
	"scrivener/internal/services/llm"
	"scrivener/internal/services/research"
	"scrivener/internal/shelf"
	"scrivener/internal/synthesis"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := shelf.Open(cfg)
	if err != nil {
		logger.Error("open shelf store", logging.Error(err))
		return
	}

	llmClient := llm.NewClient(cfg.LLM)
	researchClient := research.NewClient(cfg.Research)

	manager := pipeline.NewManager(
		store,
		outline.NewPlanner(llmClient, cfg.Writing, logger),
		synthesis.New(llmClient, logger),
		researchClient,
		cfg,
		logger,
	)
	mapper := cartographer.New(researchClient, llmClient, store, cfg.Research.MaxResults, logger)

	d, err := daemon.New(cfg, store, manager, mapper, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("scrivenerd shutting down")
}
