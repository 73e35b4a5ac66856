// Package marketdata provides price lookup for the simulation: a live
// source backed by the Alpaca market-data API and a replay source backed
// by the captured parquet dataset, behind one PriceSource interface.
package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// PriceSource supplies daily OHLC series for a ticker over a date range,
// inclusive of both endpoints, ascending by date. An empty slice (nil
// error) means no data is available for the range.
type PriceSource interface {
	HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// lookbackDays is how far back the latest-price helpers scan. Seven
// calendar days bridges weekends and market holidays.
const lookbackDays = 7

// LatestCloseUpTo returns the most recent close price at or before asOf,
// truncated to cents. ok is false when no bar exists in the lookback
// window.
func LatestCloseUpTo(ctx context.Context, src PriceSource, symbol string, asOf time.Time) (decimal.Decimal, bool, error) {
	bar, ok, err := latestBarUpTo(ctx, src, symbol, asOf)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return decimal.NewFromFloat(bar.Close).Truncate(2), true, nil
}

// LatestOpenUpTo returns the most recent opening price at or before asOf,
// truncated to cents. ok is false when no bar exists in the lookback
// window.
func LatestOpenUpTo(ctx context.Context, src PriceSource, symbol string, asOf time.Time) (decimal.Decimal, bool, error) {
	bar, ok, err := latestBarUpTo(ctx, src, symbol, asOf)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	return decimal.NewFromFloat(bar.Open).Truncate(2), true, nil
}

func latestBarUpTo(ctx context.Context, src PriceSource, symbol string, asOf time.Time) (domain.Bar, bool, error) {
	start := asOf.AddDate(0, 0, -lookbackDays)
	bars, err := src.HistoricalBars(ctx, symbol, start, asOf)
	if err != nil {
		return domain.Bar{}, false, err
	}
	if len(bars) == 0 {
		return domain.Bar{}, false, nil
	}
	return bars[len(bars)-1], true, nil
}
