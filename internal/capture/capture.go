// Package capture downloads the daily-bar dataset that the replay price
// source and screener run against: every ticker in the universe file plus
// the benchmark, from the configured start date through the latest
// finished trading day.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradewind/internal/domain"
	"tradewind/internal/store"
	"tradewind/internal/util"
)

// Gatherer fetches daily OHLCV bars for the configured universe via the
// Alpaca market-data API and writes them to the bar store. Writes are
// merged per symbol-year, so re-running after a partial failure only
// fills in what is missing.
type Gatherer struct {
	client     *marketdata.Client
	store      store.BarStore
	limiter    *util.RateLimiter
	batchSize  int
	maxWorkers int
	startDate  string
	apiKey     string
	apiSecret  string
	baseURL    string // trading API, for the calendar
	log        *slog.Logger
}

// NewGatherer creates a Gatherer with the given Alpaca credentials,
// target store, and batch parameters.
func NewGatherer(apiKey, apiSecret, dataURL, baseURL string, s store.BarStore, batchSize, maxWorkers, rateLimitPerMin int, startDate string) *Gatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &Gatherer{
		client:     marketdata.NewClient(opts),
		store:      s,
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		startDate:  startDate,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		log:        slog.Default().With("component", "capture"),
	}
}

// Run fetches bars for every symbol from the start date through the
// latest finished trading day. Batches fail independently: one bad batch
// is logged and skipped, the rest of the run continues.
func (g *Gatherer) Run(ctx context.Context, symbols []string) error {
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}
	end, err := LatestFinishedTradingDay(g.apiKey, g.apiSecret, g.baseURL)
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}

	batches := splitBatches(symbols, g.batchSize)
	g.log.Info("starting capture",
		"symbols", len(symbols),
		"batches", len(batches),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
	)

	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	var (
		wg       sync.WaitGroup
		written  atomic.Int64
		failed   atomic.Int64
		runStart = time.Now()
	)

	workers := g.maxWorkers
	if workers > len(batches) {
		workers = len(batches)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range batchCh {
				if ctx.Err() != nil {
					return
				}
				if err := g.limiter.Wait(ctx); err != nil {
					return
				}

				bars, err := g.fetchMultiBars(ctx, batches[idx], start, end)
				if err != nil {
					failed.Add(1)
					g.log.Error("batch fetch failed",
						"batch", fmt.Sprintf("%d/%d", idx+1, len(batches)),
						"err", err,
					)
					continue
				}
				if len(bars) > 0 {
					if err := g.store.WriteBars(ctx, bars); err != nil {
						failed.Add(1)
						g.log.Error("writing bars failed", "err", err)
						continue
					}
					written.Add(int64(len(bars)))
				}

				g.log.Info("batch done",
					"batch", fmt.Sprintf("%d/%d", idx+1, len(batches)),
					"bars", len(bars),
					"elapsed", time.Since(runStart).Round(time.Second),
				)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d batches failed", n, len(batches))
	}

	g.log.Info("capture complete",
		"bars", written.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchMultiBars fetches daily bars for a batch of symbols in one API
// call, retrying transient failures.
func (g *Gatherer) fetchMultiBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		multiBars, err = g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}

func splitBatches(symbols []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}
