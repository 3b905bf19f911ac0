package cart

import (
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/ledger"
	"github.com/noah-isme/harga-api/internal/pricing"
	"github.com/noah-isme/harga-api/internal/promo"
)

// ItemSnapshot is the per-line pricing view.
type ItemSnapshot struct {
	ID               uuid.UUID           `json:"id"`
	ProductID        uuid.UUID           `json:"productId"`
	VariantID        uuid.UUID           `json:"variantId"`
	Title            string              `json:"title"`
	Qty              int                 `json:"qty"`
	StoredUnitPrice  int64               `json:"storedUnitPrice"`
	CorrectUnitPrice int64               `json:"correctUnitPrice"`
	TierSlug         string              `json:"tierSlug,omitempty"`
	SavingsPercent   int                 `json:"savingsPercent,omitempty"`
	NeedsPriceSync   bool                `json:"needsPriceSync"`
	Reward           bool                `json:"reward"`
	RewardRuleID     *uuid.UUID          `json:"rewardRuleId,omitempty"`
	Suspended        bool                `json:"suspended"`
	AmountNeeded     *int64              `json:"amountNeeded,omitempty"`
	Adjustments      []ledger.Adjustment `json:"adjustments"`
}

// Offer describes a PWP rule surfaced to the shopper, eligible or not.
type Offer struct {
	RuleID       uuid.UUID `json:"ruleId"`
	Name         string    `json:"name"`
	RewardTitle  string    `json:"rewardTitle,omitempty"`
	Eligible     bool      `json:"eligible"`
	Reason       string    `json:"reason,omitempty"`
	AmountNeeded *int64    `json:"amountNeeded,omitempty"`
	Discount     int64     `json:"discount,omitempty"`
}

// Snapshot is the full pricing view of a cart.
type Snapshot struct {
	CartID         uuid.UUID       `json:"cartId"`
	Currency       string          `json:"currency"`
	Items          []ItemSnapshot  `json:"items"`
	Offers         []Offer         `json:"offers"`
	NeedsPriceSync bool            `json:"needsPriceSync"`
	Degraded       bool            `json:"degraded"`
	Discount       DiscountState   `json:"discount"`
	Totals         pricing.Summary `json:"totals"`
}

func buildSnapshot(c Cart, priced []pricedItem, evaluated []promo.Eligibility, view promo.View, taxBps int) Snapshot {
	snap := Snapshot{
		CartID:   c.ID,
		Currency: c.Currency,
		Discount: c.Discount,
	}

	lines := make([]pricing.Line, 0, len(priced))
	var discounts pricing.Discounts
	for _, p := range priced {
		item := p.item
		is := ItemSnapshot{
			ID:               item.ID,
			ProductID:        item.ProductID,
			VariantID:        item.VariantID,
			Title:            item.Title,
			Qty:              item.Qty,
			StoredUnitPrice:  item.UnitPrice,
			CorrectUnitPrice: p.correct,
			NeedsPriceSync:   p.needsPriceSync(),
			Reward:           item.Reward,
			RewardRuleID:     item.RewardRuleID,
			Suspended:        item.Suspended,
			Adjustments:      item.Adjustments,
		}
		if p.tier != nil {
			is.TierSlug = p.tier.Slug
			is.SavingsPercent = pricing.SavingsPercent(*p.tier, p.base)
		}
		snap.Items = append(snap.Items, is)
		snap.NeedsPriceSync = snap.NeedsPriceSync || is.NeedsPriceSync
		snap.Degraded = snap.Degraded || p.degraded

		lines = append(lines, pricing.Line{
			Qty:       item.Qty,
			UnitPrice: p.correct,
			Reward:    item.Reward,
			Suspended: item.Suspended,
		})
		if item.Suspended {
			// A paused reward contributes neither price nor discount.
			continue
		}
		discounts.PWP += -ledger.TotalForKind(item.Adjustments, ledger.KindPWP)
		discounts.Points += -ledger.TotalForKind(item.Adjustments, ledger.KindPoints)
		discounts.Adjustment += -ledger.TotalForKind(item.Adjustments, ledger.KindTier)
		discounts.Adjustment += -ledger.TotalForKind(item.Adjustments, ledger.KindMembershipPromo)
		discounts.Adjustment += -ledger.TotalForKind(item.Adjustments, ledger.KindCoupon)
	}

	for _, ev := range evaluated {
		offer := Offer{
			RuleID:       ev.Rule.ID,
			Name:         ev.Rule.Name,
			RewardTitle:  ev.Rule.RewardTitle,
			Eligible:     ev.Eligible,
			AmountNeeded: ev.AmountNeeded,
			Discount:     ev.Discount,
		}
		if ev.Reason != nil {
			offer.Reason = reasonCode(ev.Reason)
		}
		snap.Offers = append(snap.Offers, offer)
	}

	snap.Totals = pricing.Compute(lines, discounts, taxBps, 0)
	return snap
}

// reasonCode maps evaluator sentinels to stable machine-readable codes.
func reasonCode(err error) string {
	switch {
	case errors.Is(err, promo.ErrRuleInactive):
		return "inactive"
	case errors.Is(err, promo.ErrRuleExpired):
		return "outside_window"
	case errors.Is(err, promo.ErrUsageLimitReached):
		return "usage_cap_reached"
	case errors.Is(err, promo.ErrMinPurchaseUnmet):
		return "minimum_purchase_unmet"
	case errors.Is(err, promo.ErrTriggerUnmet):
		return "trigger_unmet"
	case errors.Is(err, promo.ErrAlreadyApplied):
		return "already_applied"
	case errors.Is(err, promo.ErrRuleNotFound):
		return "not_found"
	default:
		return "not_eligible"
	}
}
