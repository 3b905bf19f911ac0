package worker

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type identifiers handled by the pricing worker.
const (
	TypeCartReconcile    = "cart:reconcile"
	TypePromoExpireSweep = "promo:expire_sweep"
	TypeOrderPlaced      = "order:placed"
)

// CartReconcilePayload identifies the cart to converge.
type CartReconcilePayload struct {
	CartID uuid.UUID `json:"cartId"`
}

// OrderPlacedPayload carries the promotion rules redeemed by a placed order
// so their usage counters can be consumed.
type OrderPlacedPayload struct {
	CartID  uuid.UUID   `json:"cartId"`
	RuleIDs []uuid.UUID `json:"ruleIds"`
}

// NewCartReconcileTask builds a reconcile task for one cart. The task id is
// derived from the cart so duplicate enqueues collapse.
func NewCartReconcileTask(cartID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(CartReconcilePayload{CartID: cartID})
	if err != nil {
		return nil, fmt.Errorf("worker: encode reconcile payload: %w", err)
	}
	return asynq.NewTask(TypeCartReconcile, payload,
		asynq.TaskID("cart:reconcile:"+cartID.String()),
		asynq.MaxRetry(5),
	), nil
}

// NewPromoExpireSweepTask builds the periodic expiry sweep task.
func NewPromoExpireSweepTask() *asynq.Task {
	return asynq.NewTask(TypePromoExpireSweep, nil, asynq.MaxRetry(1))
}

// NewOrderPlacedTask builds the redemption-count task for a placed order.
func NewOrderPlacedTask(cartID uuid.UUID, ruleIDs []uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderPlacedPayload{CartID: cartID, RuleIDs: ruleIDs})
	if err != nil {
		return nil, fmt.Errorf("worker: encode order placed payload: %w", err)
	}
	return asynq.NewTask(TypeOrderPlaced, payload,
		asynq.TaskID("order:placed:"+cartID.String()),
		asynq.MaxRetry(10),
	), nil
}
