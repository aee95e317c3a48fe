// Package market is the read-only facade over ticker hashes spec.md §4.2
// describes, grounded on the teacher's MarketHandler/CacheService (which
// read candle/price data through a cache in front of Postgres) —
// generalized here to read the ticker hash directly, since the ticker is
// the store's own source of truth and there is nothing upstream of it to
// cache against.
package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/store"
)

const tickerKeyPrefix = "sym_"

func tickerKey(symbol string) string { return tickerKeyPrefix + symbol }

// View is the Market View component.
type View struct {
	store *store.Store
}

func New(s *store.Store) *View {
	return &View{store: s}
}

// Quote is the full ticker snapshot spec.md §4.2 names.
type Quote struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Last decimal.Decimal
	Ts   time.Time
}

// Ticker reads the full ticker row for symbol. Only price and timestamp
// are required fields per spec.md §6; the rest default to their zero
// value when the feeder hasn't populated them yet.
func (v *View) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	fields, err := v.store.HGetAll(ctx, tickerKey(symbol))
	if err != nil {
		return domain.Ticker{}, err
	}
	if len(fields) == 0 {
		return domain.Ticker{}, apperr.New("market.Ticker", apperr.UnknownSymbol, fmt.Errorf("no ticker for %s", symbol))
	}

	price, err := decFromString(fields["price"])
	if err != nil {
		return domain.Ticker{}, apperr.New("market.Ticker", apperr.Fatal, fmt.Errorf("corrupt price for %s: %w", symbol, err))
	}
	ts, err := tsFromString(fields["timestamp"])
	if err != nil {
		return domain.Ticker{}, apperr.New("market.Ticker", apperr.Fatal, fmt.Errorf("corrupt timestamp for %s: %w", symbol, err))
	}

	t := domain.Ticker{
		Symbol:    symbol,
		Price:     price,
		Timestamp: ts,
		Bid:       decOrZero(fields["bid"]),
		Ask:       decOrZero(fields["ask"]),
		BidVolume: decOrZero(fields["bidVolume"]),
		AskVolume: decOrZero(fields["askVolume"]),
	}
	return t, nil
}

// LastPrice returns last_price(symbol), or UnknownSymbol if no ticker
// has ever been written for it.
func (v *View) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	t, err := v.Ticker(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Price, nil
}

// Quote returns {bid, ask, last, ts} for symbol.
func (v *View) Quote(ctx context.Context, symbol string) (Quote, error) {
	t, err := v.Ticker(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Bid: t.Bid, Ask: t.Ask, Last: t.Price, Ts: t.Timestamp}, nil
}

// IsStale reports whether symbol's ticker is older than maxAge. maxAge
// of zero disables the check (spec.md §9 Open Question (b): staleness
// policy defaults off).
func (v *View) IsStale(ctx context.Context, symbol string, maxAge time.Duration) (bool, error) {
	if maxAge <= 0 {
		return false, nil
	}
	t, err := v.Ticker(ctx, symbol)
	if err != nil {
		return false, err
	}
	return t.Age(time.Now()) > maxAge, nil
}

// Symbols lists every symbol with a known ticker (the supplemented
// GET /symbols endpoint from original_source/scripts/server.py).
func (v *View) Symbols(ctx context.Context) ([]string, error) {
	keys, err := v.store.KeysWithPrefix(ctx, tickerKeyPrefix)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(keys))
	for _, k := range keys {
		symbols = append(symbols, k[len(tickerKeyPrefix):])
	}
	return symbols, nil
}

// SetPrice force-writes a ticker's price/timestamp, used by the
// PATCH /admin/tickers/{sym}/price endpoint (spec.md §6) and by tests
// seeding a price feed without a real external feeder. It preserves any
// existing bid/ask/volume fields.
func (v *View) SetPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	return v.store.HSet(ctx, tickerKey(symbol), map[string]string{
		"symbol":    symbol,
		"price":     price.String(),
		"timestamp": strconv.FormatFloat(float64(at.UnixNano())/1e9, 'f', -1, 64),
	})
}

func decFromString(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal field")
	}
	return decimal.NewFromString(s)
}

func decOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func tsFromString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp field")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), nil
}
