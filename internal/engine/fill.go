package engine

import (
	"context"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
)

// CompleteOrders resolves every fillable pending order against market
// data. An order is fillable only strictly after its creation date, so a
// buy submitted today cannot fill on today's prices. Orders with no
// available price stay pending and are retried on the next day; filling
// is idempotent — rows already owned are untouched.
func (e *Engine) CompleteOrders(ctx context.Context, orders *ledger.Orders, bank *ledger.Bank, date time.Time) error {
	for _, row := range orders.Rows() {
		if !row.OrderDate.Before(date) {
			continue
		}
		var err error
		switch row.Status {
		case domain.StatusPendingBuy:
			err = e.fillBuy(ctx, orders, bank, row.Ticker, date)
		case domain.StatusPendingSell:
			err = e.fillSell(ctx, orders, bank, row.Ticker, date)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// fillBuy resolves one pending buy at the latest available close up to
// date: the requested cash buys requested/price shares, the initial stop
// floor is set, and the gross amount plus fee is debited from the bank.
func (e *Engine) fillBuy(ctx context.Context, orders *ledger.Orders, bank *ledger.Bank, ticker string, date time.Time) error {
	ord := orders.Get(ticker, domain.StatusPendingBuy)
	if ord == nil {
		return nil
	}

	if e.params.MaxPendingAgeDays > 0 {
		age := int(date.Sub(ord.OrderDate).Hours() / 24)
		if age > e.params.MaxPendingAgeDays {
			e.log.Warn("pending buy expired without price data",
				"ticker", ticker,
				"order_date", ord.OrderDate.Format("2006-01-02"),
				"age_days", age,
			)
			orders.Remove(ticker)
			return nil
		}
	}

	price, ok, err := marketdata.LatestCloseUpTo(ctx, e.prices, ticker, date)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Debug("no price data for pending buy, retrying next day", "ticker", ticker)
		return nil
	}

	ord.Fill = &domain.Fill{
		Quantity: ord.RequestedAmount.Div(price),
		Price:    price,
	}
	ord.Status = domain.StatusOwned
	ord.StopLoss = price.Mul(e.params.InitialStopLossFraction).Truncate(2)

	bank.Post(date, ticker, domain.TxBuy, ord.RequestedAmount, e.params.FeeFraction)

	e.log.Info("buy filled",
		"ticker", ticker,
		"price", price.String(),
		"quantity", ord.Fill.Quantity.StringFixed(4),
		"stop_loss", ord.StopLoss.String(),
	)
	return nil
}

// fillSell resolves one pending sell at the latest available opening
// price up to date: the proceeds minus fee are credited to the bank and
// the row leaves the ledger.
func (e *Engine) fillSell(ctx context.Context, orders *ledger.Orders, bank *ledger.Bank, ticker string, date time.Time) error {
	ord := orders.Get(ticker, domain.StatusPendingSell)
	if ord == nil || ord.Fill == nil {
		return nil
	}

	price, ok, err := marketdata.LatestOpenUpTo(ctx, e.prices, ticker, date)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Debug("no price data for pending sell, retrying next day", "ticker", ticker)
		return nil
	}

	proceeds := ord.Fill.Quantity.Mul(price).Truncate(2)
	bank.Post(date, ticker, domain.TxSell, proceeds, e.params.FeeFraction)
	orders.Remove(ticker)

	e.log.Info("sell filled",
		"ticker", ticker,
		"price", price.String(),
		"proceeds", proceeds.String(),
	)
	return nil
}
