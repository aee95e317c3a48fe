// Package orderbook is the order ledger spec.md §4.4 describes: one hash
// per order plus whatever secondary indexes let the Engine and Scheduler
// scan efficiently (status, symbol, FIFO creation order). Grounded on the
// teacher's OrderRepo (Create/UpdateStatus/FindByUserID-with-filters),
// reworked from SQL WHERE clauses to Redis sorted sets/sets reached via
// store.Raw, since spec.md §4.4 leaves index layout as an implementation
// choice and a KV store has no query planner to do it for us.
package orderbook

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/store"
)

const (
	orderKeyPrefix = "ord_"
	lockTTL        = 5 * time.Second

	idxAll      = "idx:ord:all"      // zset, score = ts_create unix-nano
	idxOpen     = "idx:ord:open"     // zset, score = ts_create unix-nano
	idxTerminal = "idx:ord:terminal" // zset, score = ts_final unix-nano
)

func orderKey(oid string) string { return orderKeyPrefix + oid }
func idxSymbol(symbol string) string { return "idx:ord:symbol:" + symbol }
func idxStatus(status domain.Status) string { return "idx:ord:status:" + string(status) }

// Orderbook is the Orderbook component.
type Orderbook struct {
	store *store.Store
}

func New(s *store.Store) *Orderbook {
	return &Orderbook{store: s}
}

// Filter selects a subset of orders for List.
type Filter struct {
	Symbol   string
	Statuses []domain.Status
	// Tail, if > 0, returns only the most recent Tail orders by
	// ts_create after the symbol/status filter is applied.
	Tail int
}

// Create persists a brand-new order. o.Status must be domain.StatusNew;
// Orderbook never invents the initial transition, it only enforces it.
func (ob *Orderbook) Create(ctx context.Context, o *domain.Order) error {
	if o.Status != domain.StatusNew {
		return apperr.New("orderbook.Create", apperr.IllegalTransition,
			fmt.Errorf("new orders must start in status %q, got %q", domain.StatusNew, o.Status))
	}
	if o.OID == "" {
		return apperr.New("orderbook.Create", apperr.InvalidArgument, fmt.Errorf("oid is required"))
	}

	return ob.store.WithLock(ctx, orderKey(o.OID), lockTTL, func(ctx context.Context) error {
		exists, err := ob.store.Exists(ctx, orderKey(o.OID))
		if err != nil {
			return err
		}
		if exists {
			return apperr.New("orderbook.Create", apperr.Conflict, fmt.Errorf("order %s already exists", o.OID))
		}
		if err := ob.store.HSet(ctx, orderKey(o.OID), serialize(o)); err != nil {
			return err
		}
		score := float64(o.TsCreate.UnixNano())
		rdb := ob.store.Raw()
		pipe := rdb.TxPipeline()
		pipe.ZAdd(ctx, idxAll, zMember(score, o.OID))
		pipe.ZAdd(ctx, idxOpen, zMember(score, o.OID))
		pipe.SAdd(ctx, idxSymbol(o.Symbol), o.OID)
		pipe.SAdd(ctx, idxStatus(o.Status), o.OID)
		_, err = pipe.Exec(ctx)
		return err
	})
}

// Get loads order oid, or apperr.NotFound if it doesn't exist.
func (ob *Orderbook) Get(ctx context.Context, oid string) (*domain.Order, error) {
	fields, err := ob.store.HGetAll(ctx, orderKey(oid))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperr.New("orderbook.Get", apperr.NotFound, fmt.Errorf("order %s not found", oid))
	}
	return deserialize(fields)
}

// Update loads oid under its per-order lock, lets mutate change it, and
// persists the result — rejecting the call outright if mutate changes
// Status to an illegal successor (domain.CanTransition). Index membership
// (status/open/terminal sets) is kept in sync with the new status.
func (ob *Orderbook) Update(ctx context.Context, oid string, mutate func(o *domain.Order) error) (*domain.Order, error) {
	var result *domain.Order
	err := ob.store.WithLock(ctx, orderKey(oid), lockTTL, func(ctx context.Context) error {
		fields, err := ob.store.HGetAll(ctx, orderKey(oid))
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return apperr.New("orderbook.Update", apperr.NotFound, fmt.Errorf("order %s not found", oid))
		}
		o, err := deserialize(fields)
		if err != nil {
			return err
		}
		before := o.Status

		if err := mutate(o); err != nil {
			return err
		}
		if o.Status != before && !domain.CanTransition(before, o.Status) {
			return apperr.New("orderbook.Update", apperr.IllegalTransition,
				fmt.Errorf("order %s: %s -> %s is not a legal transition", oid, before, o.Status))
		}
		o.TsUpdate = time.Now().UTC()
		if o.Status.Terminal() && o.TsFinal.IsZero() {
			o.TsFinal = o.TsUpdate
		}

		if err := ob.store.HSet(ctx, orderKey(oid), serialize(o)); err != nil {
			return err
		}
		if o.Status != before {
			if err := ob.reindexStatus(ctx, o, before); err != nil {
				return err
			}
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (ob *Orderbook) reindexStatus(ctx context.Context, o *domain.Order, before domain.Status) error {
	rdb := ob.store.Raw()
	pipe := rdb.TxPipeline()
	pipe.SRem(ctx, idxStatus(before), o.OID)
	pipe.SAdd(ctx, idxStatus(o.Status), o.OID)
	if before.Open() && !o.Status.Open() {
		pipe.ZRem(ctx, idxOpen, o.OID)
	}
	if o.Status.Terminal() {
		pipe.ZAdd(ctx, idxTerminal, zMember(float64(o.TsFinal.UnixNano()), o.OID))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes oid's hash and every index entry referencing it. Used by
// Prune once a terminal order has aged past spec.md §6's stale_after.
func (ob *Orderbook) Delete(ctx context.Context, oid string) error {
	return ob.store.WithLock(ctx, orderKey(oid), lockTTL, func(ctx context.Context) error {
		o, err := ob.Get(ctx, oid)
		if apperr.KindOf(err) == apperr.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		rdb := ob.store.Raw()
		pipe := rdb.TxPipeline()
		pipe.Del(ctx, orderKey(oid))
		pipe.ZRem(ctx, idxAll, oid)
		pipe.ZRem(ctx, idxOpen, oid)
		pipe.ZRem(ctx, idxTerminal, oid)
		pipe.SRem(ctx, idxSymbol(o.Symbol), oid)
		pipe.SRem(ctx, idxStatus(o.Status), oid)
		_, err = pipe.Exec(ctx)
		return err
	})
}

// List returns orders matching filter, newest-first once Tail is applied.
func (ob *Orderbook) List(ctx context.Context, filter Filter) ([]*domain.Order, error) {
	oids, err := ob.candidateOIDs(ctx, filter)
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(oids))
	for _, oid := range oids {
		o, err := ob.Get(ctx, oid)
		if apperr.KindOf(err) == apperr.NotFound {
			continue // index/hash briefly out of sync mid-mutation; ignore
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].TsCreate.After(orders[j].TsCreate) })
	if filter.Tail > 0 && len(orders) > filter.Tail {
		orders = orders[:filter.Tail]
	}
	return orders, nil
}

func (ob *Orderbook) candidateOIDs(ctx context.Context, filter Filter) ([]string, error) {
	rdb := ob.store.Raw()

	sets := make([]string, 0, 2)
	if filter.Symbol != "" {
		sets = append(sets, idxSymbol(filter.Symbol))
	}
	if len(filter.Statuses) == 1 {
		sets = append(sets, idxStatus(filter.Statuses[0]))
	}

	var base []string
	var err error
	if len(sets) == 0 {
		base, err = rdb.ZRange(ctx, idxAll, 0, -1).Result()
	} else if len(sets) == 1 {
		base, err = rdb.SMembers(ctx, sets[0]).Result()
	} else {
		base, err = rdb.SInter(ctx, sets...).Result()
	}
	if err != nil {
		return nil, classifyRaw("orderbook.List", err)
	}

	if len(filter.Statuses) <= 1 {
		return base, nil
	}
	want := make(map[domain.Status]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		want[s] = true
	}
	out := base[:0]
	for _, oid := range base {
		o, err := ob.Get(ctx, oid)
		if err != nil {
			continue
		}
		if want[o.Status] {
			out = append(out, oid)
		}
	}
	return out, nil
}

// ScanOpen returns every OPEN order ({new, partially_filled}) in FIFO
// order by ts_create, tie-broken by oid — the order the tick loop (spec.md
// §4.5) must process limit settlements in.
func (ob *Orderbook) ScanOpen(ctx context.Context) ([]*domain.Order, error) {
	oids, err := ob.store.Raw().ZRange(ctx, idxOpen, 0, -1).Result()
	if err != nil {
		return nil, classifyRaw("orderbook.ScanOpen", err)
	}
	orders := make([]*domain.Order, 0, len(oids))
	for _, oid := range oids {
		o, err := ob.Get(ctx, oid)
		if apperr.KindOf(err) == apperr.NotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ScanTerminalOlderThan returns terminal orders whose ts_final predates
// cutoff, for Prune's stale-order sweep (spec.md §4.5).
func (ob *Orderbook) ScanTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	byScore := &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(cutoff.UnixNano(), 10)}
	oids, err := ob.store.Raw().ZRangeByScore(ctx, idxTerminal, byScore).Result()
	if err != nil {
		return nil, classifyRaw("orderbook.ScanTerminalOlderThan", err)
	}
	orders := make([]*domain.Order, 0, len(oids))
	for _, oid := range oids {
		o, err := ob.Get(ctx, oid)
		if apperr.KindOf(err) == apperr.NotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
