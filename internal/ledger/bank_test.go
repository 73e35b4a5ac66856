package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testDay = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func TestBankPostBuyDebitsGrossPlusFee(t *testing.T) {
	b := NewBank(d("2000.00"))

	tx := b.Post(testDay, "AAPL", domain.TxBuy, d("500.00"), d("0.05"))

	// 500.00 + fee 25.00 = 525.00 debit.
	if !tx.Net.Equal(d("-525.00")) {
		t.Errorf("net = %s, want -525.00", tx.Net)
	}
	if !b.Balance().Equal(d("1475.00")) {
		t.Errorf("balance = %s, want 1475.00", b.Balance())
	}
}

func TestBankPostSellCreditsGrossMinusFee(t *testing.T) {
	b := NewBank(d("0.00"))

	tx := b.Post(testDay, "AAPL", domain.TxSell, d("500.00"), d("0.05"))

	if !tx.Net.Equal(d("475.00")) {
		t.Errorf("net = %s, want 475.00", tx.Net)
	}
	if !b.Balance().Equal(d("475.00")) {
		t.Errorf("balance = %s, want 475.00", b.Balance())
	}
}

func TestBankPostTruncatesEveryStep(t *testing.T) {
	b := NewBank(d("1000.00"))

	// gross truncates 333.339 → 333.33; fee = 333.33 × 0.0333 = 11.099889
	// → 11.09 (truncated, not rounded). Debit = 344.42.
	tx := b.Post(testDay, "XYZ", domain.TxBuy, d("333.339"), d("0.0333"))

	if !tx.Net.Equal(d("-344.42")) {
		t.Errorf("net = %s, want -344.42", tx.Net)
	}
	if !b.Balance().Equal(d("655.58")) {
		t.Errorf("balance = %s, want 655.58", b.Balance())
	}
}

func TestBankPostingsAppendOnly(t *testing.T) {
	b := NewBank(d("2000.00"))
	b.Post(testDay, "AAPL", domain.TxBuy, d("500.00"), d("0.05"))
	b.Post(testDay, "MSFT", domain.TxBuy, d("500.00"), d("0.05"))

	posted := b.Postings()
	if len(posted) != 2 {
		t.Fatalf("Postings returned %d rows, want 2", len(posted))
	}
	if posted[0].Ticker != "AAPL" || posted[1].Ticker != "MSFT" {
		t.Errorf("posting order = %s, %s; want AAPL, MSFT", posted[0].Ticker, posted[1].Ticker)
	}
	if !posted[1].Balance.Equal(d("950.00")) {
		t.Errorf("final balance = %s, want 950.00", posted[1].Balance)
	}

	// Mutating the returned slice must not affect the ledger.
	posted[0].Ticker = "HACKED"
	if b.Postings()[0].Ticker != "AAPL" {
		t.Error("Postings returned internal slice, not a copy")
	}
}
