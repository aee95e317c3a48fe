package orderbook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
)

// serialize flattens an Order into the hash fields spec.md §6 names.
func serialize(o *domain.Order) map[string]string {
	fields := map[string]string{
		"oid":             o.OID,
		"symbol":          o.Symbol,
		"side":            string(o.Side),
		"type":            string(o.Type),
		"amount":          o.Amount.String(),
		"ts_create":       formatTime(o.TsCreate),
		"commission_rate": o.CommissionRate.String(),
		"cash_asset":      o.CashAsset,
		"reserved":        o.Reserved.String(),
		"reserved_asset":  o.ReservedAsset,
		"status":          string(o.Status),
		"filled":          o.Filled.String(),
		"notional":        o.Notional.String(),
		"fee":             o.Fee.String(),
		"avg_price":       o.AvgPrice.String(),
		"ts_update":       formatTime(o.TsUpdate),
	}
	if !o.LimitPrice.IsZero() || o.Type == domain.Limit {
		fields["limit_price"] = o.LimitPrice.String()
	}
	if !o.TsFinal.IsZero() {
		fields["ts_final"] = formatTime(o.TsFinal)
	}
	if o.CancelReason != "" {
		fields["cancel_reason"] = o.CancelReason
	}
	return fields
}

// deserialize rebuilds an Order from a hash's fields. Any corrupt numeric
// or timestamp field is a Fatal error: the hash is this service's own
// write, so corruption means a bug, not bad input.
func deserialize(f map[string]string) (*domain.Order, error) {
	o := &domain.Order{
		OID:           f["oid"],
		Symbol:        f["symbol"],
		Side:          domain.Side(f["side"]),
		Type:          domain.OrderType(f["type"]),
		CashAsset:     f["cash_asset"],
		ReservedAsset: f["reserved_asset"],
		Status:        domain.Status(f["status"]),
		CancelReason:  f["cancel_reason"],
	}

	var err error
	if o.Amount, err = dec(f, "amount"); err != nil {
		return nil, err
	}
	if o.LimitPrice, err = decOrZero(f, "limit_price"); err != nil {
		return nil, err
	}
	if o.CommissionRate, err = dec(f, "commission_rate"); err != nil {
		return nil, err
	}
	if o.Reserved, err = dec(f, "reserved"); err != nil {
		return nil, err
	}
	if o.Filled, err = decOrZero(f, "filled"); err != nil {
		return nil, err
	}
	if o.Notional, err = decOrZero(f, "notional"); err != nil {
		return nil, err
	}
	if o.Fee, err = decOrZero(f, "fee"); err != nil {
		return nil, err
	}
	if o.AvgPrice, err = decOrZero(f, "avg_price"); err != nil {
		return nil, err
	}
	if o.TsCreate, err = parseTime(f["ts_create"]); err != nil {
		return nil, err
	}
	if o.TsUpdate, err = parseTime(f["ts_update"]); err != nil {
		return nil, err
	}
	if f["ts_final"] != "" {
		if o.TsFinal, err = parseTime(f["ts_final"]); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func dec(f map[string]string, key string) (decimal.Decimal, error) {
	s := f[key]
	if s == "" {
		return decimal.Zero, apperr.New("orderbook.deserialize", apperr.Fatal, fmt.Errorf("missing required field %q", key))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.New("orderbook.deserialize", apperr.Fatal, fmt.Errorf("corrupt field %q: %w", key, err))
	}
	return d, nil
}

func decOrZero(f map[string]string, key string) (decimal.Decimal, error) {
	s := f[key]
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.New("orderbook.deserialize", apperr.Fatal, fmt.Errorf("corrupt field %q: %w", key, err))
	}
	return d, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, apperr.New("orderbook.deserialize", apperr.Fatal, fmt.Errorf("missing required timestamp field"))
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, apperr.New("orderbook.deserialize", apperr.Fatal, fmt.Errorf("corrupt timestamp: %w", err))
	}
	return time.Unix(0, n).UTC(), nil
}

// zMember builds a redis.Z, the small helper both Create and reindexStatus
// reach for when updating the FIFO/terminal sorted-set indexes.
func zMember(score float64, member string) redis.Z {
	return redis.Z{Score: score, Member: member}
}

// classifyRaw wraps an error surfaced by a direct Raw() client call the
// same way store.classify would, for the handful of orderbook operations
// that bypass the six-verb surface for index bookkeeping.
func classifyRaw(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.New(op, apperr.Transient, err)
}
