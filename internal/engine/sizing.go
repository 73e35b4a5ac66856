package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/ledger"
)

// SubmitNewOrders sizes and enqueues buys for candidate tickers not
// already in the ledger. Half the bank (ReserveFraction) is investable;
// it is split equally across the new candidates, each share truncated to
// cents. Equal weighting is deliberate — no volatility or confidence
// weighting.
func (e *Engine) SubmitNewOrders(orders *ledger.Orders, bank *ledger.Bank, candidates []string, date time.Time) {
	investable := bank.Balance().Mul(e.params.ReserveFraction).Truncate(2)
	if !investable.IsPositive() {
		return
	}

	held := make(map[string]struct{})
	for _, t := range orders.Tickers() {
		held[t] = struct{}{}
	}

	var toBuy []string
	seen := make(map[string]struct{})
	for _, t := range candidates {
		if _, ok := held[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		toBuy = append(toBuy, t)
	}
	if len(toBuy) == 0 {
		return
	}
	sort.Strings(toBuy)

	share := investable.Div(decimal.NewFromInt(int64(len(toBuy)))).Truncate(2)
	if !share.IsPositive() {
		return
	}
	for _, t := range toBuy {
		orders.SubmitBuy(t, share, date)
	}

	e.log.Info("submitted new buy orders",
		"count", len(toBuy),
		"per_ticker", share.String(),
	)
}
