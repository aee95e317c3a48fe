// Package engine is the Engine component spec.md §4.5-§4.9 describes: order
// intake, market-order execution, tick-driven limit settlement, cancel,
// prune, and the reconciliation overview. It is the only component allowed
// to mutate Orderbook or Portfolio state — every other package (httpapi,
// scheduler) reaches the store only through here.
//
// Grounded on the teacher's OrderService (PlaceOrder/match/settle/
// CancelOrder in internal/service/order_service.go): the shape of
// "validate, lock funds, persist, match, settle" survives, generalized
// from cross-user order-book matching to single-order-vs-ticker
// settlement, and from Postgres row locks to the store's per-key
// advisory locks.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/config"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/market"
	"github.com/didac-crst/mockexchange-api/internal/metrics"
	"github.com/didac-crst/mockexchange-api/internal/orderbook"
	"github.com/didac-crst/mockexchange-api/internal/portfolio"
	"github.com/didac-crst/mockexchange-api/internal/store"
)

// Engine wires the four leaf components together under one API. Per
// spec.md §3's ownership rule ("external adapters must go through the
// Engine"), httpapi never touches market/portfolio/orderbook/store
// directly — every read and admin operation it needs is re-exposed here
// too (see readops.go).
type Engine struct {
	store     *store.Store
	market    *market.View
	portfolio *portfolio.Portfolio
	orderbook *orderbook.Orderbook
	cfgVal    atomic.Pointer[config.Config]
	log       *zap.Logger
	rng       RNG
	now       func() time.Time
}

// cfg returns the currently active configuration. Reads are lock-free;
// see UpdateConfig for how it gets swapped at runtime.
func (e *Engine) cfg() config.Config { return *e.cfgVal.Load() }

// UpdateConfig atomically replaces the engine's configuration, letting
// config.Watcher hot-reload knobs like commission_rate or
// stale_ticker_max_age_sec without restarting the process.
func (e *Engine) UpdateConfig(cfg config.Config) { e.cfgVal.Store(&cfg) }

// Option customizes an Engine at construction; used by tests to inject a
// seeded RNG or a fake clock without touching production wiring.
type Option func(*Engine)

func WithRNG(rng RNG) Option { return func(e *Engine) { e.rng = rng } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(s *store.Store, m *market.View, p *portfolio.Portfolio, ob *orderbook.Orderbook, cfg config.Config, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		market:    m,
		portfolio: p,
		orderbook: ob,
		log:       log,
		rng:       NewRand(time.Now().UnixNano()),
		now:       func() time.Time { return time.Now().UTC() },
	}
	e.cfgVal.Store(&cfg)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// reservation is what step 2 of spec.md §4.5 computes: which asset to
// reserve on, how much, and the price that will anchor the eventual fill.
type reservation struct {
	asset string
	amount decimal.Decimal
	effectivePrice decimal.Decimal
}

func (e *Engine) computeReservation(side domain.Side, typ domain.OrderType, amount, limitPrice decimal.Decimal, base, quote string, lastPrice decimal.Decimal) reservation {
	effective := lastPrice
	if typ == domain.Limit {
		effective = limitPrice
	}
	if side == domain.Buy {
		feeMultiplier := decimal.NewFromInt(1).Add(e.cfg().CommissionRate)
		return reservation{asset: quote, amount: amount.Mul(effective).Mul(feeMultiplier), effectivePrice: effective}
	}
	return reservation{asset: base, amount: amount, effectivePrice: effective}
}

func (e *Engine) validateIntake(symbol string, typ domain.OrderType, amount, limitPrice decimal.Decimal) (base, quote string, err error) {
	if !amount.IsPositive() {
		return "", "", apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("amount must be > 0"))
	}
	if typ == domain.Limit && !limitPrice.IsPositive() {
		return "", "", apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("limit orders require limit_price > 0"))
	}
	if typ != domain.Market && typ != domain.Limit {
		return "", "", apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("unknown order type %q", typ))
	}
	base, quote, ok := domain.SplitSymbol(symbol)
	if !ok {
		return "", "", apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("malformed symbol %q", symbol))
	}
	return base, quote, nil
}

// Place implements spec.md §4.5's place operation.
func (e *Engine) Place(ctx context.Context, symbol string, side domain.Side, typ domain.OrderType, amount, limitPrice decimal.Decimal) (*domain.Order, error) {
	if side != domain.Buy && side != domain.Sell {
		return nil, apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("unknown side %q", side))
	}
	base, quote, err := e.validateIntake(symbol, typ, amount, limitPrice)
	if err != nil {
		return nil, err
	}

	ticker, err := e.market.Ticker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if typ == domain.Market && e.tickerStale(ticker) {
		return nil, apperr.New("engine.Place", apperr.StaleTicker, fmt.Errorf("ticker for %s is stale", symbol))
	}

	res := e.computeReservation(side, typ, amount, limitPrice, base, quote, ticker.Price)

	oid := store.NewID()
	now := e.now()
	order := &domain.Order{
		OID:            oid,
		Symbol:         symbol,
		Side:           side,
		Type:           typ,
		Amount:         amount,
		LimitPrice:     limitPrice,
		TsCreate:       now,
		CommissionRate: e.cfg().CommissionRate,
		CashAsset:      quote,
		ReservedAsset:  res.asset,
		Status:         domain.StatusNew,
		TsUpdate:       now,
	}

	reserveErr := e.portfolio.Reserve(ctx, res.asset, res.amount)
	if reserveErr != nil {
		if apperr.KindOf(reserveErr) != apperr.InsufficientFunds {
			return nil, reserveErr
		}
		order.Reserved = decimal.Zero
		if err := e.orderbook.Create(ctx, order); err != nil {
			return nil, err
		}
		rejected, err := e.orderbook.Update(ctx, oid, func(upd *domain.Order) error {
			upd.Status = domain.StatusRejected
			upd.CancelReason = "insufficient_funds"
			return nil
		})
		if err != nil {
			return nil, err
		}
		metrics.OrdersTerminal.WithLabelValues(string(domain.StatusRejected)).Inc()
		return rejected, nil
	}

	order.Reserved = res.amount
	if err := e.orderbook.Create(ctx, order); err != nil {
		_ = e.portfolio.Release(context.Background(), res.asset, res.amount)
		return nil, err
	}
	metrics.OrdersPlaced.WithLabelValues(symbol, string(side), string(typ)).Inc()

	if typ == domain.Market {
		go e.dispatchMarketOrder(oid)
	}
	return order, nil
}

// CanExecute implements spec.md §4.5's dry-run: steps 1-2 without
// reserving or persisting, reporting whether free balance would suffice.
func (e *Engine) CanExecute(ctx context.Context, symbol string, side domain.Side, typ domain.OrderType, amount, limitPrice decimal.Decimal) (bool, string, error) {
	if side != domain.Buy && side != domain.Sell {
		return false, "", apperr.New("engine.CanExecute", apperr.InvalidArgument, fmt.Errorf("unknown side %q", side))
	}
	base, quote, err := e.validateIntake(symbol, typ, amount, limitPrice)
	if err != nil {
		return false, "", err
	}
	ticker, err := e.market.Ticker(ctx, symbol)
	if err != nil {
		return false, "", err
	}
	res := e.computeReservation(side, typ, amount, limitPrice, base, quote, ticker.Price)

	bal, err := e.portfolio.Get(ctx, res.asset)
	if err != nil {
		return false, "", err
	}
	if bal.Free.LessThan(res.amount) {
		return false, fmt.Sprintf("insufficient %s: need %s, have %s free", res.asset, res.amount, bal.Free), nil
	}
	return true, "", nil
}

func (e *Engine) tickerStale(t domain.Ticker) bool {
	if e.cfg().StaleTickerMaxAge <= 0 {
		return false
	}
	return t.Age(e.now()) > e.cfg().StaleTickerMaxAge
}
