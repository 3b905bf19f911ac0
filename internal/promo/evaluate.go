package promo

import (
	"time"

	"github.com/google/uuid"
)

// LineView is the slice of a cart line the evaluator needs.
type LineView struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Reward    bool
	Subtotal  int64
}

// View is a read-only projection of the cart used for rule evaluation.
// Subtotal excludes PWP reward lines so a reward can never help trigger
// itself. AppliedCodes lists the adjustment codes currently on the cart.
// RewardPrices carries the catalog price of each candidate reward variant.
type View struct {
	Lines        []LineView
	Subtotal     int64
	AppliedCodes map[string]bool
	RewardPrices map[uuid.UUID]int64
}

// Eligibility is the outcome of evaluating one rule against a cart.
type Eligibility struct {
	Rule         Rule
	Eligible     bool
	Reason       error
	AmountNeeded *int64
	Discount     int64
}

// Evaluate checks every rule against the cart view. All eligible PWP rules
// are surfaced as independent offers; the caller decides how many a shopper
// may activate. Only per-rule usage caps are enforced here.
func Evaluate(view View, rules []Rule, now time.Time) []Eligibility {
	out := make([]Eligibility, 0, len(rules))
	for _, r := range rules {
		out = append(out, EvaluateOne(view, r, now))
	}
	return out
}

// EvaluateOne checks a single rule. Ineligible results carry a sentinel
// reason and, for unmet cart-value triggers, the shortfall amount so the UI
// can prompt "add $X more".
func EvaluateOne(view View, r Rule, now time.Time) Eligibility {
	result := Eligibility{Rule: r}

	if err := r.Validate(now); err != nil {
		result.Reason = err
		return result
	}
	if view.AppliedCodes[r.AdjustmentCode()] {
		result.Reason = ErrAlreadyApplied
		return result
	}

	switch r.TriggerKind {
	case TriggerCartValue:
		if view.Subtotal < r.TriggerCartValue {
			needed := r.TriggerCartValue - view.Subtotal
			result.Reason = ErrTriggerUnmet
			result.AmountNeeded = &needed
			return result
		}
	case TriggerProduct:
		if r.TriggerProductID == nil || !hasProduct(view.Lines, *r.TriggerProductID) {
			result.Reason = ErrTriggerUnmet
			return result
		}
	}

	if (r.Kind == KindMembership || r.Kind == KindCoupon) && r.MinPurchase > 0 && view.Subtotal < r.MinPurchase {
		result.Reason = ErrMinPurchaseUnmet
		return result
	}

	result.Eligible = true
	result.Discount = rewardAmount(view, r)
	return result
}

// TriggerSatisfied reports whether the rule's trigger currently holds for
// the cart, ignoring the already-applied guard. Used when re-checking a
// reward that is already on the cart: an unmet cart-value trigger also
// yields the shortfall needed to restore it.
func TriggerSatisfied(view View, r Rule) (bool, *int64) {
	switch r.TriggerKind {
	case TriggerCartValue:
		if view.Subtotal < r.TriggerCartValue {
			needed := r.TriggerCartValue - view.Subtotal
			return false, &needed
		}
	case TriggerProduct:
		if r.TriggerProductID == nil || !hasProduct(view.Lines, *r.TriggerProductID) {
			return false, nil
		}
	}
	return true, nil
}

// rewardAmount computes the discount the rule is worth against its
// qualifying base: the reward item price for PWP rules, the cart subtotal
// otherwise. Fixed rewards are capped at the base so a line total can never
// go negative.
func rewardAmount(view View, r Rule) int64 {
	base := view.Subtotal
	if r.Kind == KindPWP {
		base = 0
		if r.RewardVariantID != nil {
			base = view.RewardPrices[*r.RewardVariantID]
		}
	}
	if base <= 0 {
		return 0
	}
	var discount int64
	switch r.RewardKind {
	case RewardPercent:
		if r.RewardPercentBps <= 0 {
			return 0
		}
		discount = (base * int64(r.RewardPercentBps)) / 10000
	default:
		discount = r.RewardValue
	}
	if discount > base {
		discount = base
	}
	if discount < 0 {
		return 0
	}
	return discount
}

func hasProduct(lines []LineView, productID uuid.UUID) bool {
	for _, ln := range lines {
		if ln.Reward {
			continue
		}
		if ln.ProductID == productID {
			return true
		}
	}
	return false
}
