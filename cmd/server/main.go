package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/app"
	"github.com/rovshanmuradov/topbags/internal/config"
	"github.com/rovshanmuradov/topbags/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer app.SyncLogger(appLogger)

	appLogger.Info("Starting TopBags leaderboard service",
		zap.String("addr", cfg.ListenAddr),
		zap.Duration("poll_interval", cfg.PollInterval))

	svc, err := app.New(rootCtx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build service", zap.Error(err))
	}

	if err := svc.Serve(rootCtx); err != nil {
		appLogger.Error("Service stopped with error", zap.Error(err))
	}

	appLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if err := svc.Close(shutdownCtx); err != nil {
		appLogger.Warn("Shutdown incomplete", zap.Error(err))
	}
}
