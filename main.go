package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pace42/orchestrator/internal/agents"
	"github.com/pace42/orchestrator/internal/config"
	"github.com/pace42/orchestrator/internal/gather"
	"github.com/pace42/orchestrator/internal/health"
	"github.com/pace42/orchestrator/internal/httpapi"
	"github.com/pace42/orchestrator/internal/llm"
	"github.com/pace42/orchestrator/internal/personas"
	"github.com/pace42/orchestrator/internal/planner"
	"github.com/pace42/orchestrator/internal/session"
	"github.com/pace42/orchestrator/internal/source"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting coaching orchestrator",
		zap.Int("port", cfg.Server.Port),
		zap.String("source", cfg.Source.BaseURL),
		zap.String("llm", cfg.LLM.BaseURL),
	)

	// Session store must be up before anything that touches conversations.
	sessions, err := session.NewManager(cfg.Redis.Addr, cfg.SessionTTL(), logger)
	if err != nil {
		logger.Fatal("Failed to connect session store", zap.Error(err))
	}
	defer sessions.Close()

	profiles, err := personas.NewStore(cfg.Profiles.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load runner profiles", zap.Error(err))
	}
	defer profiles.Close()

	model := llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLMTimeout(), logger)

	sources := source.NewRegistry(source.ClientConfig{
		BaseURL:     cfg.Source.BaseURL,
		CallTimeout: cfg.SourceCallTimeout(),
		RatePerSec:  cfg.Source.RatePerSec,
		RateBurst:   cfg.Source.RateBurst,
	}, logger)

	hm := health.NewManager()
	hm.Register(health.NewRedisChecker(sessions.RedisWrapper()))
	hm.Register(health.NewHTTPChecker("llm", cfg.LLM.BaseURL+"/healthz", false))
	hm.Register(health.NewHTTPChecker("activity-feed", cfg.Source.BaseURL+"/healthz", false))

	server := httpapi.NewServer(httpapi.Deps{
		Logger:   logger,
		Planner:  planner.NewPlanner(model, logger),
		Runner:   agents.NewRunner(model, logger),
		Sources:  sources,
		Sessions: sessions,
		Profiles: profiles,
		Health:   hm,
		GatherCfg: gather.Config{
			ActivityType:        cfg.Gathering.ActivityType,
			OverfetchMultiplier: cfg.Gathering.OverfetchMultiplier,
			MaxFetchLimit:       cfg.Gathering.MaxFetchLimit,
			PerActivityTimeout:  cfg.PerActivityTimeout(),
		},
		RecentRunsCount: cfg.Gathering.RecentRunsCount,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if lc.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
