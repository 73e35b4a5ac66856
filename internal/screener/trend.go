package screener

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/marketdata"
)

// Base moving-average windows for the trend template, in trading days.
// Each scales with the ranking lookback: at n years the template uses
// 50n/150n/200n-day averages.
const (
	smaShortBase  = 50
	smaMediumBase = 150
	smaLongBase   = 200

	// monthDays approximates one trading month. The slope of the long
	// moving average is checked over one month per lookback year.
	monthDays = 21
)

// TrendScreener implements the production screen. Stage one keeps
// tickers that beat the benchmark over the window and land in the top
// performance quantile of the universe; stage two keeps only those whose
// price sits in an established long-term uptrend.
type TrendScreener struct {
	prices    marketdata.PriceSource
	benchmark string
	quantile  float64
	years     int
	log       *slog.Logger
}

var _ Screener = (*TrendScreener)(nil)

// NewTrendScreener creates a screener ranking against the given
// benchmark symbol. performanceQuantile is the percentage of the
// universe kept by the relative-strength stage, e.g. 30 keeps the top
// 30%. lookbackYears scales the trend windows to the ranking period;
// values below 1 are treated as 1.
func NewTrendScreener(prices marketdata.PriceSource, benchmark string, performanceQuantile float64, lookbackYears int) *TrendScreener {
	if lookbackYears < 1 {
		lookbackYears = 1
	}
	return &TrendScreener{
		prices:    prices,
		benchmark: benchmark,
		quantile:  performanceQuantile,
		years:     lookbackYears,
		log:       slog.Default().With("component", "screener"),
	}
}

// windows returns the lookback-scaled trend windows in trading days.
func (s *TrendScreener) windows() (short, medium, long, slope int) {
	return smaShortBase * s.years, smaMediumBase * s.years, smaLongBase * s.years, monthDays * s.years
}

// minBars is the shortest series the trend template can be evaluated on:
// the long window plus the slope window behind it.
func (s *TrendScreener) minBars() int {
	_, _, long, slope := s.windows()
	return long + slope
}

type ranked struct {
	ticker    string
	relReturn float64
	bars      []domain.Bar
}

// RankAndFilter runs both stages over [start, end] and returns the
// surviving tickers, sorted. Tickers with too little history are skipped
// rather than failing the whole screen.
func (s *TrendScreener) RankAndFilter(ctx context.Context, universe []string, start, end time.Time) ([]string, error) {
	benchReturn, err := s.benchmarkReturn(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var candidates []ranked
	for _, ticker := range universe {
		bars, err := s.prices.HistoricalBars(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		if len(bars) < s.minBars() {
			s.log.Debug("skipping ticker with short history", "ticker", ticker, "bars", len(bars))
			continue
		}
		rel := (bars[len(bars)-1].Close / bars[0].Close) / benchReturn
		if rel < 1 {
			continue
		}
		candidates = append(candidates, ranked{ticker: ticker, relReturn: rel, bars: bars})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].relReturn > candidates[j].relReturn
	})
	keep := int(math.Ceil(float64(len(candidates)) * s.quantile / 100))
	if keep < 1 {
		keep = 1
	}
	if keep > len(candidates) {
		keep = len(candidates)
	}
	candidates = candidates[:keep]

	var out []string
	for _, c := range candidates {
		if s.inUptrend(c.bars) {
			out = append(out, c.ticker)
		}
	}
	sort.Strings(out)

	s.log.Info("screen complete",
		"universe", len(universe),
		"ranked", keep,
		"selected", len(out),
	)
	return out, nil
}

func (s *TrendScreener) benchmarkReturn(ctx context.Context, start, end time.Time) (float64, error) {
	bars, err := s.prices.HistoricalBars(ctx, s.benchmark, start, end)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, &BenchmarkError{Symbol: s.benchmark}
	}
	return bars[len(bars)-1].Close / bars[0].Close, nil
}

// BenchmarkError reports that the benchmark series is missing or too
// short to rank against. The screen cannot run without it.
type BenchmarkError struct {
	Symbol string
}

func (e *BenchmarkError) Error() string {
	return "no usable price history for benchmark " + e.Symbol
}

// inUptrend applies the trend template to a bar series of at least
// minBars points, with every window scaled by the lookback years n:
//
//   - the latest close is above the 50n-, 150n- and 200n-day averages
//   - the averages stack in order: 50n ≥ 150n ≥ 200n
//   - the 200n-day average slopes upward over the last n trading months
//   - the latest close is at least 30% above the period low
//   - the latest close is within 25% of the period high
//
// The period low and high come from the bars' Low and High columns, not
// from closes — an intraday spike counts.
func (s *TrendScreener) inUptrend(bars []domain.Bar) bool {
	short, medium, long, slope := s.windows()
	closes := closeSeries(bars)
	last := closes[len(closes)-1]

	sShort := sma(closes, short)
	sMedium := sma(closes, medium)
	sLong := sma(closes, long)

	if last <= sShort || last <= sMedium || last <= sLong {
		return false
	}
	if sShort < sMedium || sMedium < sLong {
		return false
	}

	trail := smaTrail(closes, long, slope)
	if leastSquaresSlope(trail) <= 0 || trail[len(trail)-1] < trail[0] {
		return false
	}

	lo, hi := bars[0].Low, bars[0].High
	for _, b := range bars {
		if b.Low < lo {
			lo = b.Low
		}
		if b.High > hi {
			hi = b.High
		}
	}
	if last < lo*1.3 {
		return false
	}
	if last < hi*0.75 {
		return false
	}
	return true
}

// sma returns the mean of the last n values.
func sma(values []float64, n int) float64 {
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// smaTrail returns the trailing points of the n-value moving average:
// the average as of each of the last count days.
func smaTrail(values []float64, n, count int) []float64 {
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		end := len(values) - count + 1 + i
		out[i] = sma(values[:end], n)
	}
	return out
}

// leastSquaresSlope fits a straight line through the points (0, y0),
// (1, y1), … and returns its slope.
func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func closeSeries(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
