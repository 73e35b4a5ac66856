package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradewind/internal/domain"
)

type stubSource struct {
	bars map[string][]domain.Bar
}

func (s *stubSource) HistoricalBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.Bar, error) {
	return s.bars[symbol], nil
}

// series builds n daily bars with open/high/low/close from f(i).
func series(n int, f func(i int) float64) []domain.Bar {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Bar, n)
	for i := range out {
		c := f(i)
		out[i] = domain.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}
	return out
}

func testWindow() (time.Time, time.Time) {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestRankAndFilterSelectsSteadyRiser(t *testing.T) {
	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY": series(260, func(i int) float64 { return 100 }),
		// Steady linear climb: ends well above all averages, near its
		// high, far above its low.
		"UP": series(260, func(i int) float64 { return 100 + 0.2*float64(i) }),
		// Steady decline: loses to the benchmark outright.
		"DOWN": series(260, func(i int) float64 { return 200 - 0.2*float64(i) }),
	}}
	s := NewTrendScreener(src, "SPY", 100, 1)

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"UP", "DOWN"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 1 || got[0] != "UP" {
		t.Errorf("selected %v, want [UP]", got)
	}
}

func TestRankAndFilterRejectsFadedRiser(t *testing.T) {
	// Beats the benchmark over the full window but has given back most
	// of the gain: ends below 1.3× its period low.
	faded := func(i int) float64 {
		if i < 130 {
			return 100 + float64(i)
		}
		return 230 - float64(i-130)
	}
	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY":   series(260, func(i int) float64 { return 100 }),
		"FADED": series(260, faded),
	}}
	s := NewTrendScreener(src, "SPY", 100, 1)

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"FADED"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("selected %v, want none", got)
	}
}

func TestRankAndFilterQuantileKeepsTopPerformers(t *testing.T) {
	riser := func(slope float64) []domain.Bar {
		return series(260, func(i int) float64 { return 100 + slope*float64(i) })
	}
	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY": series(260, func(i int) float64 { return 100 }),
		"AAA": riser(0.5),
		"BBB": riser(0.4),
		"CCC": riser(0.3),
		"DDD": riser(0.2),
	}}
	// Top 50% of four candidates: only the two strongest survive.
	s := NewTrendScreener(src, "SPY", 50, 1)

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 2 || got[0] != "AAA" || got[1] != "BBB" {
		t.Errorf("selected %v, want [AAA BBB]", got)
	}
}

func TestRankAndFilterWindowsScaleWithLookback(t *testing.T) {
	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY": series(530, func(i int) float64 { return 100 }),
		// Two years of steady climb: enough history for the doubled
		// 400-day average plus the two-month slope window.
		"LONG": series(530, func(i int) float64 { return 100 + 0.2*float64(i) }),
		// One year of history: plenty at lookback 1, too short once the
		// windows double.
		"SHORT": series(260, func(i int) float64 { return 100 + 0.2*float64(i) }),
	}}
	s := NewTrendScreener(src, "SPY", 100, 2)

	short, medium, long, slope := s.windows()
	if short != 100 || medium != 300 || long != 400 || slope != 42 {
		t.Fatalf("windows at lookback 2 = %d/%d/%d slope %d, want 100/300/400 slope 42",
			short, medium, long, slope)
	}

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"LONG", "SHORT"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 1 || got[0] != "LONG" {
		t.Errorf("selected %v, want [LONG] (260 bars is short history at lookback 2)", got)
	}
}

func TestRankAndFilterUsesBarHighsAndLows(t *testing.T) {
	// Closes climb steadily, but an early intraday spike in the High
	// column puts the latest close more than 25% below the period high.
	spiked := series(260, func(i int) float64 { return 100 + 0.2*float64(i) })
	spiked[30].High = 250

	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY":    series(260, func(i int) float64 { return 100 }),
		"SPIKED": spiked,
	}}
	s := NewTrendScreener(src, "SPY", 100, 1)

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"SPIKED"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("selected %v, want none (period high comes from the High column)", got)
	}

	// The period low comes from the Low column too: closes alone sit
	// within 30% of their own minimum, but an early intraday dip sets a
	// deeper true low that satisfies the 1.3× floor.
	dipped := series(260, func(i int) float64 { return 120 + 0.04*float64(i) })
	dipped[30].Low = 90
	src.bars["DIPPED"] = dipped

	got, err = s.RankAndFilter(context.Background(), []string{"DIPPED"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 1 || got[0] != "DIPPED" {
		t.Errorf("selected %v, want [DIPPED] (period low comes from the Low column)", got)
	}
}

func TestRankAndFilterSkipsShortHistory(t *testing.T) {
	src := &stubSource{bars: map[string][]domain.Bar{
		"SPY": series(260, func(i int) float64 { return 100 }),
		"NEW": series(30, func(i int) float64 { return 100 + float64(i) }),
	}}
	s := NewTrendScreener(src, "SPY", 100, 1)

	start, end := testWindow()
	got, err := s.RankAndFilter(context.Background(), []string{"NEW"}, start, end)
	if err != nil {
		t.Fatalf("RankAndFilter: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("selected %v, want none for short history", got)
	}
}

func TestRankAndFilterMissingBenchmarkFails(t *testing.T) {
	src := &stubSource{bars: map[string][]domain.Bar{
		"UP": series(260, func(i int) float64 { return 100 + float64(i) }),
	}}
	s := NewTrendScreener(src, "SPY", 100, 1)

	start, end := testWindow()
	_, err := s.RankAndFilter(context.Background(), []string{"UP"}, start, end)
	var be *BenchmarkError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BenchmarkError", err)
	}
}

func TestLeastSquaresSlope(t *testing.T) {
	up := leastSquaresSlope([]float64{1, 2, 3, 4, 5})
	if up < 0.99 || up > 1.01 {
		t.Errorf("slope of y=x is %v, want 1", up)
	}
	if s := leastSquaresSlope([]float64{5, 4, 3, 2, 1}); s >= 0 {
		t.Errorf("slope of declining series is %v, want negative", s)
	}
	if s := leastSquaresSlope([]float64{3, 3, 3}); s != 0 {
		t.Errorf("slope of flat series is %v, want 0", s)
	}
}
