package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// stubSource serves canned bars, honoring the requested date range.
type stubSource struct {
	bars map[string][]domain.Bar
}

func (s *stubSource) HistoricalBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range s.bars[symbol] {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func bar(ts time.Time, open, close float64) domain.Bar {
	return domain.Bar{Timestamp: ts, Open: open, Close: close}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testParams() Params {
	return ParamsFromFractions(0.05, 0.9, 0.8, 0.5, 0)
}
