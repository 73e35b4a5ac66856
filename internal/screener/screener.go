// Package screener selects buy candidates from the ticker universe. The
// production screen is a two-stage filter: relative strength against a
// benchmark, then a long-term trend template on moving averages.
package screener

import (
	"context"
	"time"
)

// Screener ranks the universe over the given window and returns the
// tickers worth buying, sorted. An empty result is a valid outcome — on
// many days nothing qualifies.
type Screener interface {
	RankAndFilter(ctx context.Context, universe []string, start, end time.Time) ([]string, error)
}
