package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
	"tradewind/internal/screener"
	"tradewind/internal/store"
)

// Backtest drives the day-by-day simulation. Every tick starts by
// reloading the ledgers from the store and ends by persisting them, so a
// run that dies mid-way leaves the state of its last completed tick on
// disk and can be resumed by running again.
type Backtest struct {
	ledgers       store.LedgerStore
	prices        marketdata.PriceSource
	screen        screener.Screener
	engine        *Engine
	universe      []string
	starting      decimal.Decimal
	lookbackYears int
	log           *slog.Logger
}

// NewBacktest assembles a simulation run. starting seeds the bank on
// first run only; a persisted balance always wins. lookbackYears is the
// price history the screener ranks over, and also offsets the first
// simulated day past the configured start so that history exists.
func NewBacktest(ledgers store.LedgerStore, prices marketdata.PriceSource, screen screener.Screener, eng *Engine, universe []string, starting decimal.Decimal, lookbackYears int) *Backtest {
	return &Backtest{
		ledgers:       ledgers,
		prices:        prices,
		screen:        screen,
		engine:        eng,
		universe:      universe,
		starting:      starting,
		lookbackYears: lookbackYears,
		log:           slog.Default().With("component", "backtest"),
	}
}

// Summary reports what a run accomplished.
type Summary struct {
	TicksCompleted int
	Buys           int
	Sells          int
	FinalBalance   decimal.Decimal
	FinalEquity    decimal.Decimal

	// StoppedAt is the day whose tick failed, zero when the run reached
	// the end date.
	StoppedAt time.Time
}

// Run simulates every calendar day from start+lookbackYears through end
// inclusive. The first tick error stops the run; everything persisted by
// earlier ticks stays persisted.
func (b *Backtest) Run(ctx context.Context, start, end time.Time) (Summary, error) {
	var sum Summary
	first := start.AddDate(b.lookbackYears, 0, 0)
	b.log.Info("starting run",
		"first_tick", first.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"universe", len(b.universe),
	)

	for date := first; !date.After(end); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			sum.StoppedAt = date
			return sum, err
		}
		if err := b.tick(ctx, date, &sum); err != nil {
			sum.StoppedAt = date
			return sum, fmt.Errorf("tick %s: %w", date.Format("2006-01-02"), err)
		}
		sum.TicksCompleted++
	}

	b.log.Info("run complete",
		"ticks", sum.TicksCompleted,
		"buys", sum.Buys,
		"sells", sum.Sells,
		"final_balance", sum.FinalBalance.String(),
		"final_equity", sum.FinalEquity.String(),
	)
	return sum, nil
}

func (b *Backtest) tick(ctx context.Context, date time.Time, sum *Summary) error {
	rows, err := b.ledgers.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("loading orders: %w", err)
	}
	balance, ok, err := b.ledgers.LoadBalance(ctx)
	if err != nil {
		return fmt.Errorf("loading balance: %w", err)
	}
	if !ok {
		balance = b.starting
		if err := b.ledgers.SaveBalance(ctx, balance); err != nil {
			return fmt.Errorf("seeding balance: %w", err)
		}
		b.log.Info("seeded starting balance", "balance", balance.String())
	}

	orders := ledger.NewOrders(rows)
	bank := ledger.NewBank(balance)

	heldOpen := orders.OwnedTickers()
	bankOpen := bank.Balance()
	portfolioOpen, err := b.markToMarket(ctx, orders, date)
	if err != nil {
		return err
	}

	if err := b.engine.CompleteOrders(ctx, orders, bank, date); err != nil {
		return fmt.Errorf("completing orders: %w", err)
	}

	candidates, err := b.screen.RankAndFilter(ctx, b.universe, date.AddDate(-b.lookbackYears, 0, 0), date)
	if err != nil {
		return fmt.Errorf("screening: %w", err)
	}

	for _, ticker := range orders.OwnedTickers() {
		if err := b.engine.UpdateStopLoss(ctx, orders, ticker, date); err != nil {
			return fmt.Errorf("stop-loss %s: %w", ticker, err)
		}
	}

	b.engine.SubmitNewOrders(orders, bank, candidates, date)

	heldClose := orders.OwnedTickers()
	portfolioClose, err := b.markToMarket(ctx, orders, date)
	if err != nil {
		return err
	}

	result := domain.TickResult{
		Date:           date,
		BankOpen:       bankOpen,
		BankClose:      bank.Balance(),
		PortfolioOpen:  portfolioOpen,
		PortfolioClose: portfolioClose,
		HeldOpen:       heldOpen,
		HeldClose:      heldClose,
		Sold:           missingFrom(heldOpen, heldClose),
	}

	if err := b.ledgers.SaveOrders(ctx, orders.Rows()); err != nil {
		return fmt.Errorf("saving orders: %w", err)
	}
	if err := b.ledgers.SaveBalance(ctx, bank.Balance()); err != nil {
		return fmt.Errorf("saving balance: %w", err)
	}
	if txs := bank.Postings(); len(txs) > 0 {
		if err := b.ledgers.AppendTransactions(ctx, txs); err != nil {
			return fmt.Errorf("appending transactions: %w", err)
		}
	}
	if err := b.ledgers.AppendResult(ctx, result); err != nil {
		return fmt.Errorf("appending result: %w", err)
	}

	for _, tx := range bank.Postings() {
		switch tx.Action {
		case domain.TxBuy:
			sum.Buys++
		case domain.TxSell:
			sum.Sells++
		}
	}
	sum.FinalBalance = bank.Balance()
	sum.FinalEquity = result.EquityClose()
	return nil
}

// markToMarket values every filled row at the latest close, falling back
// to the fill price when no recent bar exists. Each position's value is
// truncated to cents before summing.
func (b *Backtest) markToMarket(ctx context.Context, orders *ledger.Orders, date time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range orders.Rows() {
		if row.Fill == nil {
			continue
		}
		price, ok, err := marketdata.LatestCloseUpTo(ctx, b.prices, row.Ticker, date)
		if err != nil {
			return decimal.Zero, fmt.Errorf("valuing %s: %w", row.Ticker, err)
		}
		if !ok {
			price = row.Fill.Price
		}
		total = total.Add(row.Fill.Quantity.Mul(price).Truncate(2))
	}
	return total, nil
}

// missingFrom returns the elements of before absent from after,
// preserving before's order. Both inputs are sorted ticker lists.
func missingFrom(before, after []string) []string {
	present := make(map[string]struct{}, len(after))
	for _, t := range after {
		present[t] = struct{}{}
	}
	var out []string
	for _, t := range before {
		if _, ok := present[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
