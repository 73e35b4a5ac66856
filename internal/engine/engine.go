// Package engine implements the simulation core: filling pending orders
// against market data, ratcheting trailing stop-losses, sizing new buys,
// and driving the day-by-day backtest loop.
package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"tradewind/internal/marketdata"
)

// Params are the trading parameters threaded through every engine call,
// so runs with different fees or stop fractions stay composable.
type Params struct {
	// FeeFraction is the broker fee charged on top of every buy and
	// deducted from every sell, as a fraction of the gross amount.
	FeeFraction decimal.Decimal

	// InitialStopLossFraction sets the protective floor at fill time, as
	// a fraction of the fill price.
	InitialStopLossFraction decimal.Decimal

	// TrailingStopLossFraction tracks the floor upward as a fraction of
	// the most recent close.
	TrailingStopLossFraction decimal.Decimal

	// ReserveFraction is the share of the bank balance that may be
	// deployed into new positions each day; the rest stays in reserve.
	ReserveFraction decimal.Decimal

	// MaxPendingAgeDays expires pending buys that have waited this many
	// days for price data. Zero retries forever.
	MaxPendingAgeDays int
}

// ParamsFromFractions builds Params from plain float configuration
// values.
func ParamsFromFractions(fee, initialStop, trailingStop, reserve float64, maxPendingAgeDays int) Params {
	return Params{
		FeeFraction:              decimal.NewFromFloat(fee),
		InitialStopLossFraction:  decimal.NewFromFloat(initialStop),
		TrailingStopLossFraction: decimal.NewFromFloat(trailingStop),
		ReserveFraction:          decimal.NewFromFloat(reserve),
		MaxPendingAgeDays:        maxPendingAgeDays,
	}
}

// Engine mutates the order and bank ledgers for one simulated day. It
// holds no cross-day state; the persisted ledgers are the only hand-off
// between days.
type Engine struct {
	prices marketdata.PriceSource
	params Params
	log    *slog.Logger
}

// NewEngine creates an Engine reading prices from the given source.
func NewEngine(prices marketdata.PriceSource, params Params) *Engine {
	return &Engine{
		prices: prices,
		params: params,
		log:    slog.Default().With("component", "engine"),
	}
}
