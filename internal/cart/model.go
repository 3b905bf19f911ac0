package cart

import (
	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/ledger"
)

// LineItem is one cart row. UnitPrice is the price currently stored on the
// cart, which may lag behind the tier-correct price until the shopper
// confirms a sync. Reward lines originate from PWP offers, are capped at
// quantity 1 and carry the originating rule id.
type LineItem struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	VariantID    uuid.UUID
	Title        string
	Qty          int
	UnitPrice    int64
	Reward       bool
	RewardRuleID *uuid.UUID
	Suspended    bool
	Adjustments  []ledger.Adjustment
}

// Subtotal returns the stored-price subtotal for the line.
func (li LineItem) Subtotal() int64 {
	if li.Qty <= 0 {
		return 0
	}
	return int64(li.Qty) * li.UnitPrice
}

// DiscountState holds the cart's currently applied discount sources as
// explicit typed fields. Clearing a source is a single field assignment,
// never key surgery on a metadata map.
type DiscountState struct {
	PromoID         *uuid.UUID `json:"promoId,omitempty"`
	PromoName       string     `json:"promoName,omitempty"`
	PromoKind       string     `json:"promoKind,omitempty"`
	PromoValue      int64      `json:"promoValue,omitempty"`
	CouponCode      string     `json:"couponCode,omitempty"`
	PointsRedeemed  int64      `json:"pointsRedeemed,omitempty"`
	PointsDiscount  int64      `json:"pointsDiscount,omitempty"`
	TierSlug        string     `json:"tierSlug,omitempty"`
	TierDiscountBps int32      `json:"tierDiscountBps,omitempty"`
}

// Cart is the aggregate this engine reconciles. Owned by the checkout flow
// and archived on order completion.
type Cart struct {
	ID         uuid.UUID
	CustomerID *uuid.UUID
	Currency   string
	Items      []LineItem
	Discount   DiscountState
}

// Item returns a pointer to the line item with the given id.
func (c *Cart) Item(itemID uuid.UUID) *LineItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// AnchorItem returns the line that cart-wide adjustments attach to: the
// first non-reward line.
func (c *Cart) AnchorItem() *LineItem {
	for i := range c.Items {
		if !c.Items[i].Reward {
			return &c.Items[i]
		}
	}
	return nil
}

// RewardItemForRule returns the reward line created by the given PWP rule.
func (c *Cart) RewardItemForRule(ruleID uuid.UUID) *LineItem {
	for i := range c.Items {
		if c.Items[i].Reward && c.Items[i].RewardRuleID != nil && *c.Items[i].RewardRuleID == ruleID {
			return &c.Items[i]
		}
	}
	return nil
}

// AppliedCodes collects every adjustment code present on the cart.
func (c *Cart) AppliedCodes() map[string]bool {
	codes := make(map[string]bool)
	for _, item := range c.Items {
		for _, adj := range item.Adjustments {
			codes[adj.Code()] = true
		}
	}
	return codes
}
