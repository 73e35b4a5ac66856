// Package domain defines the core types shared across the tradewind
// system: market data bars, ledger orders, bank transactions, and per-day
// backtest results.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV bar of daily market data.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// OrderStatus is the lifecycle state of an order ledger row.
type OrderStatus string

// Order lifecycle states. A completed sell has no terminal state: the row
// is removed from the ledger.
const (
	StatusPendingBuy  OrderStatus = "pending_buy"
	StatusOwned       OrderStatus = "owned"
	StatusPendingSell OrderStatus = "pending_sell"
)

// Fill records the quantity and per-share price resolved when a pending
// buy order completes. Both are set exactly once and never change.
type Fill struct {
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Order is one row of the order ledger. Fill is nil while the buy is
// pending. StopLoss is meaningful only once the order is owned, and from
// then on it never decreases.
type Order struct {
	Ticker          string
	Status          OrderStatus
	OrderDate       time.Time
	RequestedAmount decimal.Decimal
	Fill            *Fill
	StopLoss        decimal.Decimal
}

// Filled reports whether the order has resolved to a concrete quantity
// and price.
func (o *Order) Filled() bool {
	return o.Fill != nil
}

// TxAction identifies the direction of a bank posting.
type TxAction string

const (
	TxBuy  TxAction = "BUY"
	TxSell TxAction = "SELL"
)

// Transaction is one append-only row of the bank ledger: the signed net
// cash movement and the balance that resulted from it.
type Transaction struct {
	Date    time.Time
	Ticker  string
	Action  TxAction
	Net     decimal.Decimal
	Balance decimal.Decimal
}

// TickResult is the snapshot recorded for one simulated trading day.
type TickResult struct {
	Date           time.Time
	BankOpen       decimal.Decimal
	BankClose      decimal.Decimal
	PortfolioOpen  decimal.Decimal
	PortfolioClose decimal.Decimal
	HeldOpen       []string
	HeldClose      []string
	Sold           []string
}

// EquityClose returns cash plus the mark-to-market portfolio value at the
// end of the day.
func (r TickResult) EquityClose() decimal.Decimal {
	return r.BankClose.Add(r.PortfolioClose)
}
