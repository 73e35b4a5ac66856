package capture

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.txt")
	content := "# large caps\naapl\nMSFT\n\nAAPL\n  goog  \nBRK.B\nbf.b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadUniverse(path)
	if err != nil {
		t.Fatalf("ReadUniverse: %v", err)
	}
	// Share-class dots become dashes for the market-data API.
	want := []string{"AAPL", "BF-B", "BRK-B", "GOOG", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadUniverse = %v, want %v", got, want)
	}
}

func TestReadUniverseMissingFile(t *testing.T) {
	if _, err := ReadUniverse(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing universe file")
	}
}

func TestSplitBatches(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E"}

	got := splitBatches(symbols, 2)
	if len(got) != 3 {
		t.Fatalf("got %d batches, want 3", len(got))
	}
	if !reflect.DeepEqual(got[2], []string{"E"}) {
		t.Errorf("last batch = %v, want [E]", got[2])
	}

	if got := splitBatches(symbols, 0); len(got) != 5 {
		t.Errorf("batch size 0 produced %d batches, want one per symbol", len(got))
	}
	if got := splitBatches(nil, 10); got != nil {
		t.Errorf("splitBatches(nil) = %v, want nil", got)
	}
}
