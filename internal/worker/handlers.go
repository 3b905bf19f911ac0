package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/harga-api/internal/cart"
	"github.com/noah-isme/harga-api/internal/lock"
	"github.com/noah-isme/harga-api/internal/promo"
)

// PromotionStore is the slice of the promotion repo the worker needs.
type PromotionStore interface {
	ExpireRules(ctx context.Context) (int64, error)
	IncrementRedemption(ctx context.Context, ruleID uuid.UUID) error
}

// Handlers processes background pricing tasks.
type Handlers struct {
	Rec    *cart.Reconciler
	Promos PromotionStore
	Locker lock.Locker
	Log    zerolog.Logger
}

// Register mounts all task handlers on the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCartReconcile, h.HandleCartReconcile)
	mux.HandleFunc(TypePromoExpireSweep, h.HandlePromoExpireSweep)
	mux.HandleFunc(TypeOrderPlaced, h.HandleOrderPlaced)
}

// HandleCartReconcile converges one cart in the background. A vanished cart
// is treated as done, not retried.
func (h *Handlers) HandleCartReconcile(ctx context.Context, t *asynq.Task) error {
	var payload CartReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	snap, err := h.Rec.Reconcile(ctx, payload.CartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			h.Log.Debug().Str("cart_id", payload.CartID.String()).Msg("cart gone, skipping reconcile")
			return nil
		}
		return fmt.Errorf("reconcile cart %s: %w", payload.CartID, err)
	}
	h.Log.Info().
		Str("cart_id", payload.CartID.String()).
		Bool("needs_price_sync", snap.NeedsPriceSync).
		Bool("degraded", snap.Degraded).
		Msg("cart reconciled")
	return nil
}

// HandlePromoExpireSweep transitions rules whose window closed. An overlap
// with a sweep already running elsewhere is skipped, not queued.
func (h *Handlers) HandlePromoExpireSweep(ctx context.Context, _ *asynq.Task) error {
	err := h.Locker.TryLock(ctx, "lock:promo:expire_sweep", time.Minute, func(ctx context.Context) error {
		n, err := h.Promos.ExpireRules(ctx)
		if err != nil {
			return fmt.Errorf("expire rules: %w", err)
		}
		if n > 0 {
			h.Log.Info().Int64("expired", n).Msg("promotion rules expired")
		}
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		h.Log.Debug().Msg("expire sweep already running")
		return nil
	}
	return err
}

// HandleOrderPlaced consumes promotion quota for every rule redeemed by the
// order. A rule deleted since the order was placed is logged and skipped so
// the remaining increments still run.
func (h *Handlers) HandleOrderPlaced(ctx context.Context, t *asynq.Task) error {
	var payload OrderPlacedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	var failed error
	for _, ruleID := range payload.RuleIDs {
		if err := h.Promos.IncrementRedemption(ctx, ruleID); err != nil {
			if errors.Is(err, promo.ErrRuleNotFound) {
				h.Log.Warn().Str("rule_id", ruleID.String()).Msg("redeemed rule no longer exists")
				continue
			}
			failed = errors.Join(failed, err)
		}
	}
	return failed
}
