// Package store provides persistence for market data bars (parquet) and
// for the simulation ledgers (CSV or SQLite).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ascending by date.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the store.
	ListSymbols(ctx context.Context) ([]string, error)
}

// LedgerStore is the durable hand-off point between simulated days: the
// driver reloads the order ledger and bank balance from it at the start
// of every tick and persists them at the end.
//
// Missing state is not an error — it signals first-run bootstrap. A
// corrupt ledger is treated the same way (logged, then empty state), so
// the simulation can always start.
type LedgerStore interface {
	// LoadOrders returns all order ledger rows, or an empty slice when no
	// ledger exists yet.
	LoadOrders(ctx context.Context) ([]domain.Order, error)

	// SaveOrders replaces the persisted order ledger.
	SaveOrders(ctx context.Context, orders []domain.Order) error

	// LoadBalance returns the persisted bank balance. ok is false when no
	// balance has been persisted yet (first-run bootstrap).
	LoadBalance(ctx context.Context) (balance decimal.Decimal, ok bool, err error)

	// SaveBalance persists the bank balance.
	SaveBalance(ctx context.Context, balance decimal.Decimal) error

	// AppendTransactions appends rows to the bank transaction log.
	// Existing rows are never rewritten.
	AppendTransactions(ctx context.Context, txs []domain.Transaction) error

	// LoadTransactions returns the full transaction log.
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)

	// AppendResult appends one per-day result snapshot.
	AppendResult(ctx context.Context, r domain.TickResult) error

	// LoadResults returns all result snapshots, ascending by date.
	LoadResults(ctx context.Context) ([]domain.TickResult, error)
}
