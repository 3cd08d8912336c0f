// Command snapshot runs one aggregation batch and writes the ranked
// leaderboard to a CSV or JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/app"
	"github.com/rovshanmuradov/topbags/internal/config"
	"github.com/rovshanmuradov/topbags/internal/export"
	"github.com/rovshanmuradov/topbags/internal/logger"
	"github.com/rovshanmuradov/topbags/internal/ranking"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	formatFlag := flag.String("format", "csv", "Output format: csv or json")
	metricFlag := flag.String("metric", string(ranking.MarketCap), "Ranking: marketcap or earnings")
	limit := flag.Int("limit", 0, "Keep only the top N tokens (0 = all)")
	minCap := flag.Float64("min-marketcap", 0, "Drop tokens below this market cap in USD")
	onlyEarning := flag.Bool("only-earning", false, "Keep only tokens with earnings")
	outDir := flag.String("out", "exports", "Output directory")
	flag.Parse()

	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		log.Fatalf("Invalid -format: %v", err)
	}
	metric, err := ranking.ParseMetric(*metricFlag)
	if err != nil {
		log.Fatalf("Invalid -metric: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	svc, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build service", zap.Error(err))
	}
	defer svc.Close(context.Background())

	if err := svc.Snapshot(ctx); err != nil {
		appLogger.Fatal("Aggregation failed", zap.Error(err))
	}
	snap, _ := svc.Store.Latest()

	path, err := export.NewSnapshotExporter(appLogger).Export(snap, export.ExportOptions{
		Format:       format,
		Metric:       metric,
		Limit:        *limit,
		MinMarketCap: *minCap,
		OnlyEarning:  *onlyEarning,
		OutputDir:    *outDir,
	})
	if err != nil {
		appLogger.Fatal("Export failed", zap.Error(err))
	}
	fmt.Println(path)
}
