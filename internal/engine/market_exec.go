package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/metrics"
)

// errNotOpen marks a fill/reject attempt that lost a race against a
// concurrent cancel/expire on the same order: orderbook.Update's
// transition graph already rejected it, so there is nothing left to do.
var errNotOpen = errors.New("order is no longer open")

// marketExecTimeout bounds the detached goroutine dispatchMarketOrder
// spawns: the latency sleep itself is bounded by MaxTimeAnswerOrderMarket,
// so double that plus headroom for store calls is generous.
func (e *Engine) marketExecTimeout() time.Duration {
	budget := 2 * e.cfg().MaxTimeAnswerOrderMarket
	if budget < 10*time.Second {
		budget = 10 * time.Second
	}
	return budget
}

// dispatchMarketOrder is the goroutine spec.md §4.5 step 5 dispatches for
// every market order; it runs detached from the HTTP request that placed
// the order, against a fresh context, since the caller already returned.
func (e *Engine) dispatchMarketOrder(oid string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.marketExecTimeout())
	defer cancel()
	if err := e.executeMarket(ctx, oid); err != nil && !errors.Is(err, errNotOpen) {
		e.log.Error("market order execution failed", zap.String("oid", oid), zap.Error(err))
	}
}

// executeMarket implements spec.md §4.6 in full.
func (e *Engine) executeMarket(ctx context.Context, oid string) error {
	latency := sampleLatencySeconds(e.rng, e.cfg().MinTimeAnswerOrderMarket.Seconds(), e.cfg().MaxTimeAnswerOrderMarket.Seconds())
	metrics.MarketOrderLatency.Observe(latency)
	select {
	case <-time.After(time.Duration(latency * float64(time.Second))):
	case <-ctx.Done():
		return ctx.Err()
	}

	o, err := e.orderbook.Get(ctx, oid)
	if err != nil {
		return err
	}
	if !o.Status.Open() {
		return errNotOpen
	}

	price, err := e.market.LastPrice(ctx, o.Symbol)
	if err != nil {
		return e.rejectAndRelease(ctx, oid, "ticker_missing")
	}

	ratio := decimal.NewFromFloat(sampleFillRatio(e.rng, e.cfg().SigmaFillMarketOrder.InexactFloat64()))
	return e.fillOrder(ctx, oid, price, ratio, o.Type)
}

// fillOrder is the settlement primitive shared by market execution
// (ratio < 1 possible) and tick-loop limit crossing (ratio always 1,
// spec.md §4.7 step 3's "fill the remainder in full"). The order's
// record is transitioned first, under its own lock and guarded by the
// state machine, so a losing race against cancel/expire is detected
// before any balance moves happen.
func (e *Engine) fillOrder(ctx context.Context, oid string, price, ratio decimal.Decimal, typ domain.OrderType) error {
	var (
		base, quote, reservedAsset        string
		side                               domain.Side
		filled, notional, fee, releaseAmt decimal.Decimal
		nextStatus                        domain.Status
	)

	_, err := e.orderbook.Update(ctx, oid, func(upd *domain.Order) error {
		if !upd.Status.Open() {
			return errNotOpen
		}
		b, q, _ := domain.SplitSymbol(upd.Symbol)
		base, quote, side, reservedAsset = b, q, upd.Side, upd.ReservedAsset

		rem := upd.Remaining()
		filled = rem.Mul(ratio)
		if ratio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			filled = rem
		}
		notional = filled.Mul(price)
		fee = notional.Mul(upd.CommissionRate)

		consumed := filled
		if upd.Side == domain.Buy {
			consumed = notional.Add(fee)
		}
		releaseAmt = upd.Reserved.Sub(consumed)
		if releaseAmt.IsNegative() {
			releaseAmt = decimal.Zero
		}

		full := upd.Filled.Add(filled).GreaterThanOrEqual(upd.Amount)
		switch {
		case full:
			nextStatus = domain.StatusFilled
		case typ == domain.Limit:
			// Unreached while §4.7 always fills the remainder in full
			// (spec.md §9 Open Question (a)); kept for a future
			// price-volume-aware settlement rule.
			nextStatus = domain.StatusPartiallyFilled
		default:
			nextStatus = domain.StatusPartiallyCanceled
		}

		upd.Filled = upd.Filled.Add(filled)
		upd.Notional = upd.Notional.Add(notional)
		upd.Fee = upd.Fee.Add(fee)
		upd.AvgPrice = price
		upd.Status = nextStatus
		upd.Reserved = upd.Reserved.Sub(consumed).Sub(releaseAmt)
		if upd.Reserved.IsNegative() {
			upd.Reserved = decimal.Zero
		}
		return nil
	})
	if err != nil {
		return err
	}

	// base and quote are already locked by withAssetPair below, so the
	// settlement calls must go through the *Locked seam: the public
	// SettleOut/CreditFree would each try to reacquire a lock this
	// closure is already holding, and store.WithLock has no reentrancy
	// tracking to let that second acquire succeed.
	if err := e.withAssetPair(ctx, []string{base, quote}, func(ctx context.Context) error {
		if side == domain.Buy {
			if err := e.portfolio.SettleOutLocked(ctx, quote, notional.Add(fee)); err != nil {
				return err
			}
			return e.portfolio.CreditFreeLocked(ctx, base, filled)
		}
		if err := e.portfolio.SettleOutLocked(ctx, base, filled); err != nil {
			return err
		}
		return e.portfolio.CreditFreeLocked(ctx, quote, notional.Sub(fee))
	}); err != nil {
		e.log.Error("balance settlement failed after order transition; reconciliation will flag this",
			zap.String("oid", oid), zap.Error(err))
		return err
	}

	if !releaseAmt.IsZero() {
		if err := e.portfolio.Release(ctx, reservedAsset, releaseAmt); err != nil {
			e.log.Error("reservation release failed after fill", zap.String("oid", oid), zap.Error(err))
			return err
		}
	}
	if nextStatus.Terminal() {
		metrics.OrdersTerminal.WithLabelValues(string(nextStatus)).Inc()
	}
	return nil
}

func (e *Engine) rejectAndRelease(ctx context.Context, oid string, reason string) error {
	var reservedAsset string
	var reserved decimal.Decimal

	_, err := e.orderbook.Update(ctx, oid, func(upd *domain.Order) error {
		if !upd.Status.Open() {
			return errNotOpen
		}
		reservedAsset, reserved = upd.ReservedAsset, upd.Reserved
		upd.Status = domain.StatusRejected
		upd.CancelReason = reason
		upd.Reserved = decimal.Zero
		return nil
	})
	if err != nil {
		return err
	}
	if !reserved.IsZero() {
		if err := e.portfolio.Release(ctx, reservedAsset, reserved); err != nil {
			return err
		}
	}
	metrics.OrdersTerminal.WithLabelValues(string(domain.StatusRejected)).Inc()
	return nil
}

// withAssetPair acquires both assets' locks in the fixed lexicographic
// order spec.md §5 requires for any operation touching two assets.
func (e *Engine) withAssetPair(ctx context.Context, assets []string, fn func(ctx context.Context) error) error {
	return e.portfolio.WithAssetsLocked(ctx, assets, fn)
}
