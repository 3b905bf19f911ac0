package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/ledger"
	"github.com/noah-isme/harga-api/internal/pricing"
	"github.com/noah-isme/harga-api/internal/promo"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Store is the cart persistence collaborator. The backing store replaces
// the whole adjustment collection per write call, so adjustment writes are
// always the full set for one line item.
type Store interface {
	GetCart(ctx context.Context, cartID uuid.UUID) (Cart, error)
	SetLineItemAdjustments(ctx context.Context, cartID, itemID uuid.UUID, adjs []ledger.Adjustment) error
	UpdateDiscountState(ctx context.Context, cartID uuid.UUID, state DiscountState) error
	AddRewardItem(ctx context.Context, cartID uuid.UUID, item LineItem) (uuid.UUID, error)
	RemoveLineItem(ctx context.Context, cartID, itemID uuid.UUID) error
	SetLineItemSuspended(ctx context.Context, cartID, itemID uuid.UUID, suspended bool) error
	SetLineItemUnitPrice(ctx context.Context, cartID, itemID uuid.UUID, unitPrice int64) error
}

// Catalog provides variant pricing data.
type Catalog interface {
	ListPriceTiers(ctx context.Context, variantID uuid.UUID) ([]pricing.Tier, error)
	GetVariantProduct(ctx context.Context, variantID uuid.UUID) (uuid.UUID, error)
	GetVariantPrice(ctx context.Context, variantID uuid.UUID) (int64, error)
}

// Inventory reports on-hand stock for a variant.
type Inventory interface {
	GetAvailableQuantity(ctx context.Context, variantID uuid.UUID) (int, error)
}

// Membership resolves the customer's current loyalty tier discount. Tier
// assignment itself lives in the membership system; only the percentage is
// consumed here.
type Membership interface {
	TierDiscount(ctx context.Context, customerID uuid.UUID) (slug string, bps int32, err error)
}

// Promotions is the read-only promotion rule store. Redemption counting is
// owned by order placement, not by cart pricing.
type Promotions interface {
	ListActiveRules(ctx context.Context, kind promo.Kind) ([]promo.Rule, error)
	GetRule(ctx context.Context, ruleID uuid.UUID) (promo.Rule, error)
	GetCouponByCode(ctx context.Context, code string) (promo.Rule, error)
}
