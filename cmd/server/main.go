package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dgallion1/tripgenie/internal/api"
	"github.com/dgallion1/tripgenie/internal/config"
	"github.com/dgallion1/tripgenie/internal/generate"
	"github.com/dgallion1/tripgenie/internal/pipeline"
	"github.com/dgallion1/tripgenie/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	plans, err := store.Open(cfg.DBPath, cfg.PlanCacheSize)
	if err != nil {
		log.Error("failed to open plan store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	gemini, err := generate.NewGeminiClient(ctx, generate.Options{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		BaseURL:         cfg.GeminiBaseURL,
		Temperature:     float32(cfg.GeminiTemperature),
		TopK:            float32(cfg.GeminiTopK),
		TopP:            float32(cfg.GeminiTopP),
		MaxOutputTokens: int32(cfg.GeminiMaxOutputTokens),
		Timeout:         cfg.GenerateTimeout,
	})
	if err != nil {
		log.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	gemini.Stats = generate.NewLLMStats(0)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, gemini, plans, pipeline.MustNewMetrics(reg), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, plans, gemini.Stats, reg, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		gemini.Close()
		plans.Close()
	}()

	log.Info("starting tripgenie", "port", cfg.Port, "model", gemini.Model(), "db", cfg.DBPath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
