package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/domain"
)

// Tick implements spec.md §4.7: settle every OPEN limit order whose
// symbol's last price has crossed its limit. Called once per scheduler
// wake (spec.md §6 tick_loop_sec); errors on individual orders are
// logged and swallowed so one bad order never stalls the sweep.
func (e *Engine) Tick(ctx context.Context) error {
	open, err := e.orderbook.ScanOpen(ctx)
	if err != nil {
		return err
	}

	// FIFO within symbol by ts_create, ties broken by oid (spec.md §4.7
	// last paragraph); across symbols there is no ordering guarantee, so
	// one global sort by (ts_create, oid) satisfies both at once.
	sort.Slice(open, func(i, j int) bool {
		if !open[i].TsCreate.Equal(open[j].TsCreate) {
			return open[i].TsCreate.Before(open[j].TsCreate)
		}
		return open[i].OID < open[j].OID
	})

	priceCache := make(map[string]decimal.Decimal)
	for _, o := range open {
		if o.Type != domain.Limit {
			continue
		}
		price, ok := priceCache[o.Symbol]
		if !ok {
			p, err := e.market.LastPrice(ctx, o.Symbol)
			if err != nil {
				e.log.Warn("tick: no price for symbol, skipping its open orders", zap.String("symbol", o.Symbol), zap.Error(err))
				priceCache[o.Symbol] = decimal.Decimal{}
				continue
			}
			price = p
			priceCache[o.Symbol] = p
		}
		if price.IsZero() {
			continue
		}
		if stale, err := e.market.IsStale(ctx, o.Symbol, e.cfg().StaleTickerMaxAge); err == nil && stale {
			continue // defer settlement until the feed is fresh again
		}

		if !crosses(o, price) {
			continue
		}
		if err := e.fillOrder(ctx, o.OID, o.LimitPrice, decimal.NewFromInt(1), domain.Limit); err != nil && !errors.Is(err, errNotOpen) {
			e.log.Error("tick: limit settlement failed", zap.String("oid", o.OID), zap.Error(err))
		}
	}
	return nil
}

// crosses implements spec.md §4.7 step 2's crossing rule.
func crosses(o *domain.Order, lastPrice decimal.Decimal) bool {
	if o.Side == domain.Buy {
		return lastPrice.LessThanOrEqual(o.LimitPrice)
	}
	return lastPrice.GreaterThanOrEqual(o.LimitPrice)
}
