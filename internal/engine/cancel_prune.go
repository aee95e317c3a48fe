package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/metrics"
)

// Cancel implements spec.md §4.8's cancel: requires OPEN status, releases
// whatever of the reservation wasn't already spent, and transitions to
// canceled (or partially_canceled if a fill already landed).
func (e *Engine) Cancel(ctx context.Context, oid string) (*domain.Order, error) {
	var reservedAsset string
	var releaseAmt decimal.Decimal

	updated, err := e.orderbook.Update(ctx, oid, func(upd *domain.Order) error {
		if !upd.Status.Open() {
			return apperr.New("engine.Cancel", apperr.IllegalTransition,
				fmt.Errorf("order %s is not open (status=%s)", oid, upd.Status))
		}
		reservedAsset = upd.ReservedAsset
		releaseAmt = upd.Reserved

		if upd.Filled.IsPositive() {
			upd.Status = domain.StatusPartiallyCanceled
		} else {
			upd.Status = domain.StatusCanceled
		}
		upd.Reserved = decimal.Zero
		upd.CancelReason = "user_cancel"
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !releaseAmt.IsZero() {
		if err := e.portfolio.Release(ctx, reservedAsset, releaseAmt); err != nil {
			return nil, err
		}
	}
	metrics.OrdersTerminal.WithLabelValues(string(updated.Status)).Inc()
	return updated, nil
}

// Prune implements spec.md §4.8's prune: expire OPEN orders past
// expire_after, then delete terminal orders past stale_after. Both
// sweeps are idempotent (property 5) and swallow per-item errors so one
// corrupt record never stalls the rest.
func (e *Engine) Prune(ctx context.Context) error {
	if err := e.pruneExpired(ctx); err != nil {
		return err
	}
	return e.pruneStale(ctx)
}

func (e *Engine) pruneExpired(ctx context.Context) error {
	if e.cfg().ExpireAfterH <= 0 {
		return nil
	}
	open, err := e.orderbook.ScanOpen(ctx)
	if err != nil {
		return err
	}
	cutoff := e.now().Add(-e.cfg().ExpireAfter())
	for _, o := range open {
		if o.TsCreate.After(cutoff) {
			continue
		}
		if err := e.expireOrder(ctx, o.OID); err != nil {
			e.log.Error("prune: expire failed", zap.String("oid", o.OID), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) expireOrder(ctx context.Context, oid string) error {
	var reservedAsset string
	var releaseAmt decimal.Decimal

	_, err := e.orderbook.Update(ctx, oid, func(upd *domain.Order) error {
		if !upd.Status.Open() {
			return nil // already finalized since the scan; idempotent no-op
		}
		reservedAsset, releaseAmt = upd.ReservedAsset, upd.Reserved
		upd.Status = domain.StatusExpired
		upd.Reserved = decimal.Zero
		return nil
	})
	if err != nil {
		return err
	}
	if !releaseAmt.IsZero() {
		if err := e.portfolio.Release(ctx, reservedAsset, releaseAmt); err != nil {
			return err
		}
	}
	metrics.OrdersTerminal.WithLabelValues(string(domain.StatusExpired)).Inc()
	return nil
}

func (e *Engine) pruneStale(ctx context.Context) error {
	if e.cfg().StaleAfterH <= 0 {
		return nil
	}
	cutoff := e.now().Add(-e.cfg().StaleAfter())
	terminal, err := e.orderbook.ScanTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, o := range terminal {
		if err := e.orderbook.Delete(ctx, o.OID); err != nil {
			e.log.Error("prune: delete failed", zap.String("oid", o.OID), zap.Error(err))
		}
	}
	return nil
}
