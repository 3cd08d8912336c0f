package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/app"
	"github.com/rovshanmuradov/topbags/internal/config"
	"github.com/rovshanmuradov/topbags/internal/logger"
	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	metricFlag := flag.String("metric", string(ranking.MarketCap), "Initial ranking: marketcap or earnings")
	serve := flag.Bool("serve", false, "Also serve the HTTP API while the TUI runs")
	flag.Parse()

	metric, err := ranking.ParseMetric(*metricFlag)
	if err != nil {
		log.Fatalf("Invalid -metric: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Логи идут в кольцевой буфер для панели логов, вытесненные записи уходят в файл.
	var spill io.Writer
	if cfg.LogFile != "" {
		spill = logger.DefaultConfig().Rotator(cfg.LogFile)
	}
	logBuffer := logger.NewLogBuffer(0, spill)
	defer logBuffer.Close()

	appLogger, err := logger.CreateTUILoggerWithBuffer(cfg.DebugLogging, logBuffer)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer app.SyncLogger(appLogger)

	svc, err := app.New(rootCtx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	updates := ui.NewUpdateSender(64, appLogger)
	updates.Attach(svc.Bus, svc.Store)
	defer updates.Close()

	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	go func() {
		if *serve {
			if err := svc.Serve(ctx); err != nil {
				appLogger.Error("Service stopped with error", zap.Error(err))
			}
			return
		}
		svc.Poller.Start(ctx)
	}()

	handler := ui.NewRecoveryHandler(appLogger, func() (tea.Model, []tea.ProgramOption) {
		model := ui.NewModel(ui.Options{
			Source:    svc.Store,
			Refresher: svc.Poller,
			Logs:      logBuffer,
			Updates:   updates.Updates(),
			Metric:    metric,
			SOLPrice:  svc.Oracle.Snapshot().Value,
		})
		return ui.NewSafeUIWrapper(model, appLogger), []tea.ProgramOption{tea.WithAltScreen()}
	})

	if err := handler.Run(ctx); err != nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	appLogger.Info("Shutting down TUI application")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer done()
	if err := svc.Close(shutdownCtx); err != nil {
		appLogger.Warn("Shutdown incomplete", zap.Error(err))
	}
}
