package engine

import (
	"context"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
)

// UpdateStopLoss applies the trailing stop discipline to one owned
// position using yesterday's close. A close at or below the floor queues
// the position for sale; a close high enough that its trailing fraction
// exceeds the floor ratchets the floor up. The floor never moves down,
// whatever the price path does — that is the central risk-control
// invariant of the system.
func (e *Engine) UpdateStopLoss(ctx context.Context, orders *ledger.Orders, ticker string, date time.Time) error {
	ord := orders.Get(ticker, domain.StatusOwned)
	if ord == nil {
		return nil
	}

	price, ok, err := marketdata.LatestCloseUpTo(ctx, e.prices, ticker, date.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	if !ok {
		e.log.Debug("no price data for stop-loss check, retrying next day", "ticker", ticker)
		return nil
	}

	if price.LessThanOrEqual(ord.StopLoss) {
		e.log.Info("stop-loss breached",
			"ticker", ticker,
			"price", price.String(),
			"stop_loss", ord.StopLoss.String(),
		)
		orders.SubmitSell(ticker)
		return nil
	}

	if candidate := price.Mul(e.params.TrailingStopLossFraction).Truncate(2); ord.StopLoss.LessThan(candidate) {
		e.log.Debug("stop-loss ratcheted",
			"ticker", ticker,
			"from", ord.StopLoss.String(),
			"to", candidate.String(),
		)
		ord.StopLoss = candidate
	}
	return nil
}
