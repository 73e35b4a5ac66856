package ledger

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// Orders is the order ledger: at most one non-terminal row per ticker,
// moving through pending_buy → owned → pending_sell → removed.
type Orders struct {
	rows []*domain.Order
	log  *slog.Logger
}

// NewOrders creates an order ledger from persisted rows.
func NewOrders(rows []domain.Order) *Orders {
	l := &Orders{log: slog.Default().With("component", "orders")}
	for i := range rows {
		r := rows[i]
		l.rows = append(l.rows, &r)
	}
	return l
}

// Rows returns a copy of all ledger rows.
func (l *Orders) Rows() []domain.Order {
	out := make([]domain.Order, 0, len(l.rows))
	for _, r := range l.rows {
		out = append(out, *r)
	}
	return out
}

// Tickers returns every ticker with a row in any state, sorted. New buys
// must be excluded for all of these, not just owned ones.
func (l *Orders) Tickers() []string {
	out := make([]string, 0, len(l.rows))
	for _, r := range l.rows {
		out = append(out, r.Ticker)
	}
	sort.Strings(out)
	return out
}

// OwnedTickers returns tickers currently held (owned or queued for sale),
// sorted.
func (l *Orders) OwnedTickers() []string {
	var out []string
	for _, r := range l.rows {
		if r.Status == domain.StatusOwned || r.Status == domain.StatusPendingSell {
			out = append(out, r.Ticker)
		}
	}
	sort.Strings(out)
	return out
}

// Get returns the row for ticker in one of the given states, or nil.
func (l *Orders) Get(ticker string, statuses ...domain.OrderStatus) *domain.Order {
	for _, r := range l.rows {
		if r.Ticker != ticker {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				return r
			}
		}
	}
	return nil
}

// SubmitBuy inserts a pending buy for the ticker, dated at the current
// simulated date, with the cash amount truncated to cents. A ticker that
// already has a row in any state is skipped with a diagnostic — this is
// not an error, duplicate requests are simply dropped.
func (l *Orders) SubmitBuy(ticker string, amount decimal.Decimal, date time.Time) {
	for _, r := range l.rows {
		if r.Ticker == ticker {
			l.log.Warn("duplicate buy dropped",
				"ticker", ticker,
				"existing_status", r.Status,
			)
			return
		}
	}
	l.rows = append(l.rows, &domain.Order{
		Ticker:          ticker,
		Status:          domain.StatusPendingBuy,
		OrderDate:       date,
		RequestedAmount: amount.Truncate(2),
	})
}

// SubmitSell queues the owned row for the given ticker for sale. Only
// that ticker's row transitions; a ticker with no owned row is a no-op.
func (l *Orders) SubmitSell(ticker string) {
	r := l.Get(ticker, domain.StatusOwned)
	if r == nil {
		l.log.Warn("sell requested for ticker not owned", "ticker", ticker)
		return
	}
	r.Status = domain.StatusPendingSell
}

// Remove deletes the row for the given ticker (a completed sell).
func (l *Orders) Remove(ticker string) {
	for i, r := range l.rows {
		if r.Ticker == ticker {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return
		}
	}
}
