// Command tradewind-backtest runs the day-by-day portfolio simulation
// over the captured daily-bar dataset (or, with -live, against the
// Alpaca market-data API directly).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/capture"
	"tradewind/internal/config"
	"tradewind/internal/engine"
	"tradewind/internal/marketdata"
	"tradewind/internal/screener"
	"tradewind/internal/store"
	"tradewind/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to config file (default config/tradewind.yaml)")
	startFlag := flag.String("start", "", "override backtest start date (YYYY-MM-DD)")
	endFlag := flag.String("end", "", "override backtest end date (YYYY-MM-DD)")
	live := flag.Bool("live", false, "read prices from the Alpaca API instead of the local dataset")
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
	logFileName := fmt.Sprintf("/tmp/tradewind-backtest-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	util.SetDefault(util.NewLogger(w, cfg.Logging.Level, cfg.Logging.Format))

	startStr := cfg.Backtest.StartDate
	if *startFlag != "" {
		startStr = *startFlag
	}
	endStr := cfg.Backtest.EndDate
	if *endFlag != "" {
		endStr = *endFlag
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", startStr, err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		log.Fatalf("invalid end date %q: %v", endStr, err)
	}

	universe, err := capture.ReadUniverse(cfg.Screener.UniverseFile)
	if err != nil {
		log.Fatalf("failed to load universe: %v", err)
	}

	ledgers, err := openLedgerStore(cfg)
	if err != nil {
		log.Fatalf("failed to open ledger store: %v", err)
	}

	var prices marketdata.PriceSource
	if *live {
		prices = marketdata.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	} else {
		prices = marketdata.NewReplaySource(store.NewParquetStore(cfg.Storage.DataDir))
	}

	screen := screener.NewTrendScreener(prices, cfg.Screener.Benchmark, cfg.Screener.PerformanceQuantile, cfg.Backtest.LookbackYears)
	eng := engine.NewEngine(prices, engine.ParamsFromFractions(
		cfg.Backtest.FeeFraction,
		cfg.Backtest.InitialStopLoss,
		cfg.Backtest.TrailingStopLoss,
		cfg.Backtest.ReserveFraction,
		cfg.Backtest.MaxPendingAgeDays,
	))
	bt := engine.NewBacktest(
		ledgers,
		prices,
		screen,
		eng,
		universe,
		decimal.NewFromFloat(cfg.Backtest.StartingBalance),
		cfg.Backtest.LookbackYears,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sum, err := bt.Run(ctx, start, end)
	if err != nil {
		log.Fatalf("backtest stopped at %s after %d ticks: %v",
			sum.StoppedAt.Format("2006-01-02"), sum.TicksCompleted, err)
	}

	fmt.Printf("ticks: %d  buys: %d  sells: %d  final balance: %s  final equity: %s\n",
		sum.TicksCompleted, sum.Buys, sum.Sells, sum.FinalBalance.StringFixed(2), sum.FinalEquity.StringFixed(2))
}

func openLedgerStore(cfg *config.Config) (store.LedgerStore, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteLedgerStore(cfg.Storage.SQLitePath)
	case "csv", "":
		return store.NewCSVLedgerStore(cfg.Storage.LedgerDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
