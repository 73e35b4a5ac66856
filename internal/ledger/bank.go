// Package ledger holds the durable simulation state: the bank ledger
// (cash balance plus append-only postings) and the order ledger (the
// per-ticker position state machine).
package ledger

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// Bank tracks the single cash balance. Postings made during a tick are
// collected so the driver can append them to the durable transaction log;
// rows are never mutated or removed.
type Bank struct {
	balance decimal.Decimal
	posted  []domain.Transaction
	log     *slog.Logger
}

// NewBank creates a Bank starting at the given balance with no pending
// postings.
func NewBank(balance decimal.Decimal) *Bank {
	return &Bank{
		balance: balance,
		log:     slog.Default().With("component", "bank"),
	}
}

// Balance returns the current cash balance.
func (b *Bank) Balance() decimal.Decimal {
	return b.balance
}

// Postings returns the transactions posted since the Bank was created,
// in posting order.
func (b *Bank) Postings() []domain.Transaction {
	out := make([]domain.Transaction, len(b.posted))
	copy(out, b.posted)
	return out
}

// Post applies a BUY or SELL cash movement. The gross amount is truncated
// to cents, the broker fee is computed as gross×feeFraction and truncated
// to cents, and the balance moves by gross+fee (BUY, debit) or gross−fee
// (SELL, credit). Truncation happens after every multiplication so that
// repeated postings cannot accumulate sub-cent drift.
func (b *Bank) Post(date time.Time, ticker string, action domain.TxAction, gross, feeFraction decimal.Decimal) domain.Transaction {
	gross = gross.Truncate(2)
	fee := gross.Mul(feeFraction).Truncate(2)

	var net decimal.Decimal
	switch action {
	case domain.TxBuy:
		net = gross.Add(fee).Neg()
	case domain.TxSell:
		net = gross.Sub(fee)
	}

	b.balance = b.balance.Add(net).Truncate(2)

	tx := domain.Transaction{
		Date:    date,
		Ticker:  ticker,
		Action:  action,
		Net:     net,
		Balance: b.balance,
	}
	b.posted = append(b.posted, tx)

	b.log.Debug("posted",
		"date", date.Format("2006-01-02"),
		"ticker", ticker,
		"action", action,
		"net", net.String(),
		"balance", b.balance.String(),
	)
	return tx
}
