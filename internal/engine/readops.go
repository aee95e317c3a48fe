package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/orderbook"
)

// Tickers lists every symbol with a known ticker (supplemented GET
// /symbols / GET /tickers).
func (e *Engine) Tickers(ctx context.Context) ([]string, error) {
	return e.market.Symbols(ctx)
}

// Ticker returns one symbol's ticker.
func (e *Engine) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	return e.market.Ticker(ctx, symbol)
}

// Balance returns one asset's balance row.
func (e *Engine) Balance(ctx context.Context, asset string) (domain.Balance, error) {
	return e.portfolio.Get(ctx, asset)
}

// BalanceSnapshot returns every asset's balance row (GET /balance).
func (e *Engine) BalanceSnapshot(ctx context.Context) (map[string]domain.Balance, error) {
	return e.portfolio.Snapshot(ctx)
}

// Orders lists orders matching filter (GET /orders).
func (e *Engine) Orders(ctx context.Context, filter orderbook.Filter) ([]*domain.Order, error) {
	return e.orderbook.List(ctx, filter)
}

// Order returns one order (GET /orders/{oid}).
func (e *Engine) Order(ctx context.Context, oid string) (*domain.Order, error) {
	return e.orderbook.Get(ctx, oid)
}

// AdminSetPrice force-writes a ticker's price (PATCH /admin/tickers/{sym}/price).
func (e *Engine) AdminSetPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	return e.market.SetPrice(ctx, symbol, price, e.now())
}

// AdminSetBalance overwrites an asset's free/used row (PATCH /admin/balance/{asset}).
func (e *Engine) AdminSetBalance(ctx context.Context, asset string, free, used decimal.Decimal) error {
	return e.portfolio.Set(ctx, asset, free, used)
}

// AdminFund credits an asset's free balance (POST /admin/fund).
func (e *Engine) AdminFund(ctx context.Context, asset string, amount decimal.Decimal) error {
	return e.portfolio.Fund(ctx, asset, amount)
}

// AdminWipe deletes every key this service owns (DELETE /admin/data), for
// test fixtures that need a clean slate between scenarios.
func (e *Engine) AdminWipe(ctx context.Context) error {
	keys, err := e.store.KeysWithPrefix(ctx, "")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Now exposes the engine's clock for handlers that need "now" (e.g.
// healthz reporting the current time).
func (e *Engine) Now() time.Time { return e.now() }
