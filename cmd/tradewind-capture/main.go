// Command tradewind-capture downloads daily bars for the configured
// universe (plus the benchmark) from the Alpaca market-data API into the
// local parquet dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradewind/internal/capture"
	"tradewind/internal/config"
	"tradewind/internal/store"
	"tradewind/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to config file (default config/tradewind.yaml)")
	startFlag := flag.String("start", "", "override capture start date (YYYY-MM-DD)")
	flag.Parse()

	cfgPath := "config/tradewind.yaml"
	if p := os.Getenv("TRADEWIND_CONFIG"); p != "" {
		cfgPath = p
	}
	if *cfgFlag != "" {
		cfgPath = *cfgFlag
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/tradewind-capture-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	util.SetDefault(util.NewLogger(w, cfg.Logging.Level, cfg.Logging.Format))

	startDate := cfg.Capture.StartDate
	if *startFlag != "" {
		startDate = *startFlag
	}

	universe, err := capture.ReadUniverse(cfg.Screener.UniverseFile)
	if err != nil {
		log.Fatalf("failed to load universe: %v", err)
	}
	// The screener needs the benchmark's history too.
	symbols := universe
	if b := cfg.Screener.Benchmark; b != "" && !contains(symbols, b) {
		symbols = append(symbols, b)
	}

	gatherer := capture.NewGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.BaseURL,
		store.NewParquetStore(cfg.Storage.DataDir),
		cfg.Capture.BatchSize,
		cfg.Capture.MaxWorkers,
		cfg.Capture.RateLimitPerMin,
		startDate,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting tradewind-capture", "logFile", logFileName, "symbols", len(symbols))
	if err := gatherer.Run(ctx, symbols); err != nil {
		log.Fatalf("capture error: %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
