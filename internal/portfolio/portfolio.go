// Package portfolio is the balance ledger spec.md §3/§4.3 describes: per
// asset, a free/used pair with reserve/release/settle primitives and the
// non-negativity invariant. Grounded on the teacher's WalletRepo
// (GetForUpdate/UpdateBalances), reimplemented against the store's
// advisory per-key lock instead of Postgres row locks, and on
// chycee-cryptoGo/internal/domain/balance.go's Balance/BalanceBook
// invariant vocabulary (Credit/Debit/Reserve/Release), adapted from
// panics to returned *apperr.Error since this is a live service.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/store"
)

const (
	balanceKeyPrefix = "bal_"
	lockTTL          = 5 * time.Second
)

func balanceKey(asset string) string { return balanceKeyPrefix + asset }

// Portfolio is the Portfolio component.
type Portfolio struct {
	store *store.Store
}

func New(s *store.Store) *Portfolio {
	return &Portfolio{store: s}
}

// Get returns asset's balance row; a missing key is zeros, per spec.md §6.
func (p *Portfolio) Get(ctx context.Context, asset string) (domain.Balance, error) {
	fields, err := p.store.HGetAll(ctx, balanceKey(asset))
	if err != nil {
		return domain.Balance{}, err
	}
	return parseBalance(asset, fields), nil
}

func parseBalance(asset string, fields map[string]string) domain.Balance {
	return domain.Balance{
		Asset: asset,
		Free:  decOrZero(fields["free"]),
		Used:  decOrZero(fields["used"]),
	}
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

func (p *Portfolio) write(ctx context.Context, asset string, b domain.Balance) error {
	return p.store.HSet(ctx, balanceKey(asset), map[string]string{
		"asset": asset,
		"free":  b.Free.String(),
		"used":  b.Used.String(),
	})
}

// withAssetLock runs fn with one asset's per-key lock held. Operations
// touching several assets go through WithAssetsLocked, which applies the
// lexicographic lock order.
func (p *Portfolio) withAssetLock(ctx context.Context, asset string, fn func(ctx context.Context) error) error {
	return p.store.WithLock(ctx, balanceKey(asset), lockTTL, fn)
}

// WithAssetsLocked acquires every asset's lock in lexicographic order
// (spec.md §5) and runs fn once all are held. Use this whenever an
// operation touches more than one asset (every fill does: base + quote).
func (p *Portfolio) WithAssetsLocked(ctx context.Context, assets []string, fn func(ctx context.Context) error) error {
	unique := dedupeSorted(assets)
	return p.lockChain(ctx, unique, fn)
}

func (p *Portfolio) lockChain(ctx context.Context, assets []string, fn func(ctx context.Context) error) error {
	if len(assets) == 0 {
		return fn(ctx)
	}
	return p.withAssetLock(ctx, assets[0], func(ctx context.Context) error {
		return p.lockChain(ctx, assets[1:], fn)
	})
}

func dedupeSorted(assets []string) []string {
	seen := make(map[string]bool, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Set is the admin override: overwrite asset's free/used row, still
// enforcing non-negativity.
func (p *Portfolio) Set(ctx context.Context, asset string, free, used decimal.Decimal) error {
	if free.IsNegative() || used.IsNegative() {
		return apperr.New("portfolio.Set", apperr.InvalidArgument, fmt.Errorf("free/used must be >= 0"))
	}
	var err error
	lockErr := p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		err = p.write(ctx, asset, domain.Balance{Asset: asset, Free: free, Used: used})
		return err
	})
	if lockErr != nil {
		return lockErr
	}
	return err
}

// Fund credits asset's free balance by amount (amount > 0).
func (p *Portfolio) Fund(ctx context.Context, asset string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.New("portfolio.Fund", apperr.InvalidArgument, fmt.Errorf("amount must be > 0"))
	}
	return p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		return p.fundLocked(ctx, asset, amount)
	})
}

func (p *Portfolio) fundLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	b, err := p.Get(ctx, asset)
	if err != nil {
		return err
	}
	b.Free = b.Free.Add(amount)
	return p.write(ctx, asset, b)
}

// Reserve moves amount from free to used. Requires free >= amount;
// returns apperr.InsufficientFunds otherwise.
func (p *Portfolio) Reserve(ctx context.Context, asset string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.New("portfolio.Reserve", apperr.InvalidArgument, fmt.Errorf("amount must be > 0"))
	}
	return p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		return p.reserveLocked(ctx, asset, amount)
	})
}

func (p *Portfolio) reserveLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	b, err := p.Get(ctx, asset)
	if err != nil {
		return err
	}
	if b.Free.LessThan(amount) {
		return apperr.New("portfolio.Reserve", apperr.InsufficientFunds,
			fmt.Errorf("%s: need %s, have %s free", asset, amount, b.Free))
	}
	b.Free = b.Free.Sub(amount)
	b.Used = b.Used.Add(amount)
	return p.write(ctx, asset, b)
}

// Release moves amount from used back to free. Must not make used
// negative; a caller asking to release more than is reserved indicates a
// bug upstream (IllegalTransition-adjacent), so it is rejected rather
// than silently clamped.
func (p *Portfolio) Release(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return apperr.New("portfolio.Release", apperr.InvalidArgument, fmt.Errorf("amount must be >= 0"))
	}
	return p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		return p.releaseLocked(ctx, asset, amount)
	})
}

func (p *Portfolio) releaseLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	b, err := p.Get(ctx, asset)
	if err != nil {
		return err
	}
	if b.Used.LessThan(amount) {
		return apperr.New("portfolio.Release", apperr.Fatal,
			fmt.Errorf("%s: release %s exceeds used %s", asset, amount, b.Used))
	}
	b.Used = b.Used.Sub(amount)
	b.Free = b.Free.Add(amount)
	return p.write(ctx, asset, b)
}

// SettleOut removes amount from used — funds leaving the account (quote
// spent on a buy fill plus fee, or base delivered on a sell fill).
func (p *Portfolio) SettleOut(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return apperr.New("portfolio.SettleOut", apperr.InvalidArgument, fmt.Errorf("amount must be >= 0"))
	}
	return p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		return p.settleOutLocked(ctx, asset, amount)
	})
}

func (p *Portfolio) settleOutLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	b, err := p.Get(ctx, asset)
	if err != nil {
		return err
	}
	if b.Used.LessThan(amount) {
		return apperr.New("portfolio.SettleOut", apperr.Fatal,
			fmt.Errorf("%s: settle %s exceeds used %s", asset, amount, b.Used))
	}
	b.Used = b.Used.Sub(amount)
	return p.write(ctx, asset, b)
}

// CreditFree adds amount to free — funds received (base on a buy fill,
// quote net of fee on a sell fill).
func (p *Portfolio) CreditFree(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return apperr.New("portfolio.CreditFree", apperr.InvalidArgument, fmt.Errorf("amount must be >= 0"))
	}
	return p.withAssetLock(ctx, asset, func(ctx context.Context) error {
		return p.creditFreeLocked(ctx, asset, amount)
	})
}

func (p *Portfolio) creditFreeLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	b, err := p.Get(ctx, asset)
	if err != nil {
		return err
	}
	b.Free = b.Free.Add(amount)
	return p.write(ctx, asset, b)
}

// SettleOutLocked, CreditFreeLocked, and ReleaseLocked are the exported
// seams for callers that already hold asset's lock via WithAssetsLocked
// (a fill moves both base and quote under one lock chain, then settles
// both) — store.WithLock has no reentrancy tracking, so calling the
// public SettleOut/CreditFree/Release from inside that chain would
// deadlock against the lock the chain is already holding (the same
// SET-NX can never succeed twice). These skip straight to the mutation.
func (p *Portfolio) SettleOutLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	return p.settleOutLocked(ctx, asset, amount)
}

func (p *Portfolio) CreditFreeLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	return p.creditFreeLocked(ctx, asset, amount)
}

func (p *Portfolio) ReleaseLocked(ctx context.Context, asset string, amount decimal.Decimal) error {
	return p.releaseLocked(ctx, asset, amount)
}

// List enumerates every asset with a balance row.
func (p *Portfolio) List(ctx context.Context) ([]string, error) {
	keys, err := p.store.KeysWithPrefix(ctx, balanceKeyPrefix)
	if err != nil {
		return nil, err
	}
	assets := make([]string, 0, len(keys))
	for _, k := range keys {
		assets = append(assets, k[len(balanceKeyPrefix):])
	}
	return assets, nil
}

// Snapshot returns every asset's balance row.
func (p *Portfolio) Snapshot(ctx context.Context) (map[string]domain.Balance, error) {
	assets, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Balance, len(assets))
	for _, asset := range assets {
		b, err := p.Get(ctx, asset)
		if err != nil {
			return nil, err
		}
		out[asset] = b
	}
	return out, nil
}
