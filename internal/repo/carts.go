package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/harga-api/internal/cart"
	"github.com/noah-isme/harga-api/internal/ledger"
)

// CartRepo is the pgx-backed cart store.
type CartRepo struct {
	Pool *pgxpool.Pool
}

// GetCart loads the cart aggregate with its line items in insertion order.
func (r CartRepo) GetCart(ctx context.Context, cartID uuid.UUID) (cart.Cart, error) {
	const cartQuery = `
SELECT id, customer_id, currency,
       promo_id, promo_name, promo_kind, promo_value,
       coupon_code, points_redeemed, points_discount,
       tier_slug, tier_discount_bps
FROM carts WHERE id = $1`

	var c cart.Cart
	err := r.Pool.QueryRow(ctx, cartQuery, cartID).Scan(
		&c.ID, &c.CustomerID, &c.Currency,
		&c.Discount.PromoID, &c.Discount.PromoName, &c.Discount.PromoKind, &c.Discount.PromoValue,
		&c.Discount.CouponCode, &c.Discount.PointsRedeemed, &c.Discount.PointsDiscount,
		&c.Discount.TierSlug, &c.Discount.TierDiscountBps,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Cart{}, cart.ErrNotFound
		}
		return cart.Cart{}, fmt.Errorf("repo: get cart: %w", err)
	}

	const itemsQuery = `
SELECT id, product_id, variant_id, title, qty, unit_price,
       reward, reward_rule_id, suspended, adjustments
FROM cart_items WHERE cart_id = $1
ORDER BY created_at, id`

	rows, err := r.Pool.Query(ctx, itemsQuery, cartID)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("repo: list cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it cart.LineItem
		var adjRaw []byte
		if err := rows.Scan(
			&it.ID, &it.ProductID, &it.VariantID, &it.Title, &it.Qty, &it.UnitPrice,
			&it.Reward, &it.RewardRuleID, &it.Suspended, &adjRaw,
		); err != nil {
			return cart.Cart{}, fmt.Errorf("repo: scan cart item: %w", err)
		}
		if len(adjRaw) > 0 {
			if err := json.Unmarshal(adjRaw, &it.Adjustments); err != nil {
				return cart.Cart{}, fmt.Errorf("repo: decode adjustments: %w", err)
			}
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return cart.Cart{}, fmt.Errorf("repo: iterate cart items: %w", err)
	}
	return c, nil
}

// SetLineItemAdjustments replaces the full adjustment set on one line item.
func (r CartRepo) SetLineItemAdjustments(ctx context.Context, cartID, itemID uuid.UUID, adjs []ledger.Adjustment) error {
	if adjs == nil {
		adjs = []ledger.Adjustment{}
	}
	raw, err := json.Marshal(adjs)
	if err != nil {
		return fmt.Errorf("repo: encode adjustments: %w", err)
	}
	tag, err := r.Pool.Exec(ctx, `
UPDATE cart_items SET adjustments = $3, updated_at = now()
WHERE cart_id = $1 AND id = $2`, cartID, itemID, raw)
	if err != nil {
		return fmt.Errorf("repo: set adjustments: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// UpdateDiscountState persists the cart-level discount columns.
func (r CartRepo) UpdateDiscountState(ctx context.Context, cartID uuid.UUID, state cart.DiscountState) error {
	tag, err := r.Pool.Exec(ctx, `
UPDATE carts SET
    promo_id = $2, promo_name = $3, promo_kind = $4, promo_value = $5,
    coupon_code = $6, points_redeemed = $7, points_discount = $8,
    tier_slug = $9, tier_discount_bps = $10, updated_at = now()
WHERE id = $1`,
		cartID,
		state.PromoID, state.PromoName, state.PromoKind, state.PromoValue,
		state.CouponCode, state.PointsRedeemed, state.PointsDiscount,
		state.TierSlug, state.TierDiscountBps,
	)
	if err != nil {
		return fmt.Errorf("repo: update discount state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// AddRewardItem inserts a reward line and returns its id.
func (r CartRepo) AddRewardItem(ctx context.Context, cartID uuid.UUID, item cart.LineItem) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.Pool.QueryRow(ctx, `
INSERT INTO cart_items (cart_id, product_id, variant_id, title, qty, unit_price, reward, reward_rule_id)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
RETURNING id`,
		cartID, item.ProductID, item.VariantID, item.Title, item.Qty, item.UnitPrice, item.RewardRuleID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repo: add reward item: %w", err)
	}
	return id, nil
}

// RemoveLineItem deletes one line item from the cart.
func (r CartRepo) RemoveLineItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	if err != nil {
		return fmt.Errorf("repo: remove line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// SetLineItemSuspended flips the suspension flag on a reward line.
func (r CartRepo) SetLineItemSuspended(ctx context.Context, cartID, itemID uuid.UUID, suspended bool) error {
	tag, err := r.Pool.Exec(ctx, `
UPDATE cart_items SET suspended = $3, updated_at = now()
WHERE cart_id = $1 AND id = $2`, cartID, itemID, suspended)
	if err != nil {
		return fmt.Errorf("repo: set suspended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// SetLineItemUnitPrice overwrites the stored unit price after an explicit
// price sync confirmation.
func (r CartRepo) SetLineItemUnitPrice(ctx context.Context, cartID, itemID uuid.UUID, unitPrice int64) error {
	tag, err := r.Pool.Exec(ctx, `
UPDATE cart_items SET unit_price = $3, updated_at = now()
WHERE cart_id = $1 AND id = $2`, cartID, itemID, unitPrice)
	if err != nil {
		return fmt.Errorf("repo: set unit price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}
