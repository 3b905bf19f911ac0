package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates the closed set of discount sources that may attach an
// adjustment to a line item.
type Kind string

const (
	KindTier            Kind = "tier"
	KindPWP             Kind = "pwp"
	KindMembershipPromo Kind = "membership_promo"
	KindCoupon          Kind = "coupon"
	KindPoints          Kind = "points"
)

// Code prefixes. The code doubles as the idempotency/ownership key: one
// adjustment per code per line item, and removal targets a prefix.
const (
	PrefixTier            = "TIER_"
	PrefixPWP             = "PWP_"
	PrefixMembershipPromo = "MEMBERSHIP_PROMO_"
	PrefixCoupon          = "COUPON_"
	CodePoints            = "POINTS_REDEMPTION"
)

// Adjustment is a named, signed price modification on a cart line item.
// Amount is zero or negative. The code is derived from the kind and its
// qualifier rather than stored ad hoc.
type Adjustment struct {
	Kind        Kind       `json:"kind"`
	Qualifier   string     `json:"qualifier"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	PromotionID *uuid.UUID `json:"promotionId,omitempty"`
}

// Code returns the ownership key for the adjustment.
func (a Adjustment) Code() string {
	switch a.Kind {
	case KindTier:
		return PrefixTier + a.Qualifier
	case KindPWP:
		return PrefixPWP + a.Qualifier
	case KindMembershipPromo:
		return PrefixMembershipPromo + a.Qualifier
	case KindCoupon:
		return PrefixCoupon + a.Qualifier
	case KindPoints:
		return CodePoints
	default:
		return fmt.Sprintf("UNKNOWN_%s", a.Qualifier)
	}
}

// Equal reports value equality, following PromotionID instead of comparing
// the pointers. Constructors allocate a fresh pointer per call, so plain
// struct comparison would report equal-valued adjustments as different.
func (a Adjustment) Equal(b Adjustment) bool {
	if a.Kind != b.Kind || a.Qualifier != b.Qualifier || a.Amount != b.Amount || a.Description != b.Description {
		return false
	}
	if a.PromotionID == nil || b.PromotionID == nil {
		return a.PromotionID == b.PromotionID
	}
	return *a.PromotionID == *b.PromotionID
}

// TierDiscount builds a tier adjustment for the given tier slug.
func TierDiscount(slug string, amount int64, description string) Adjustment {
	return Adjustment{Kind: KindTier, Qualifier: slug, Amount: amount, Description: description}
}

// PWPDiscount builds a purchase-with-purchase adjustment for the rule.
func PWPDiscount(ruleID uuid.UUID, amount int64, description string) Adjustment {
	id := ruleID
	return Adjustment{Kind: KindPWP, Qualifier: ruleID.String(), Amount: amount, Description: description, PromotionID: &id}
}

// MembershipPromo builds a membership promo adjustment.
func MembershipPromo(promoID uuid.UUID, amount int64, description string) Adjustment {
	id := promoID
	return Adjustment{Kind: KindMembershipPromo, Qualifier: promoID.String(), Amount: amount, Description: description, PromotionID: &id}
}

// Coupon builds a coupon adjustment keyed by the coupon code.
func Coupon(code string, amount int64, description string) Adjustment {
	return Adjustment{Kind: KindCoupon, Qualifier: code, Amount: amount, Description: description}
}

// PointsRedemption builds the single points-redemption adjustment.
func PointsRedemption(amount int64, description string) Adjustment {
	return Adjustment{Kind: KindPoints, Amount: amount, Description: description}
}
