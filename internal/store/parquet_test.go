package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradewind/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "daily", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:      185.0,
			High:      186.5,
			Low:       184.0,
			Close:     185.5,
			Volume:    50000000,
		},
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:      185.5,
			High:      187.0,
			Low:       185.0,
			Close:     186.0,
			Volume:    45000000,
		},
	}

	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 || got[1].Close != 186.0 {
		t.Errorf("ReadBars closes = %v, %v; want 185.5, 186.0", got[0].Close, got[1].Close)
	}

	// A narrower window excludes the second bar.
	got, err = ps.ReadBars(ctx, "AAPL", start, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1", len(got))
	}
}

func TestParquetStoreMergeOnRewrite(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := ps.WriteBars(ctx, []domain.Bar{{Symbol: "MSFT", Timestamp: day, Close: 400}}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	// Re-capture the same day with a corrected close plus a new day.
	if err := ps.WriteBars(ctx, []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Close: 401},
		{Symbol: "MSFT", Timestamp: day.AddDate(0, 0, 1), Close: 402},
	}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 401 {
		t.Errorf("merged bar Close = %v, want the re-captured 401", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols on empty store: %v", err)
	}
	if len(symbols) != 0 {
		t.Fatalf("ListSymbols on empty store returned %v", symbols)
	}

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Symbol: "NVDA", Timestamp: day, Close: 800},
		{Symbol: "AMD", Timestamp: day, Close: 170},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err = ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AMD" || symbols[1] != "NVDA" {
		t.Errorf("ListSymbols = %v, want [AMD NVDA]", symbols)
	}
}
