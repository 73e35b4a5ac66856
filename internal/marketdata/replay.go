package marketdata

import (
	"context"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/store"
)

// Compile-time interface check.
var _ PriceSource = (*ReplaySource)(nil)

// ReplaySource serves prices from the captured parquet dataset. It is the
// backtest-mode price source: fully offline and deterministic.
type ReplaySource struct {
	bars store.BarStore
}

// NewReplaySource creates a ReplaySource reading from the given bar store.
func NewReplaySource(bars store.BarStore) *ReplaySource {
	return &ReplaySource{bars: bars}
}

// HistoricalBars reads bars for the symbol within [start, end] from the
// dataset.
func (s *ReplaySource) HistoricalBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	return s.bars.ReadBars(ctx, symbol, start, end)
}
