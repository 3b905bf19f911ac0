package pricing

import (
	"errors"
	"math"
	"sort"
)

// ErrInvalidQuantity is returned when a tier lookup is attempted with a
// non-positive quantity.
var ErrInvalidQuantity = errors.New("pricing: quantity must be positive")

// Tier is a quantity-break price point for a variant. MaxQty of zero means
// the break is open ended.
type Tier struct {
	Slug   string
	MinQty int
	MaxQty int
	Amount Money
}

// ResolvePrice selects the unit price for the given quantity from the
// variant's quantity-break tiers. Tiers are scanned from the highest MinQty
// downward; the first break containing the quantity wins. When no break
// matches, the base price (MinQty <= 1 or unset) applies. When the variant
// has no tiers at all, lastKnown is returned so a transient catalog failure
// never zeroes a stored price.
func ResolvePrice(tiers []Tier, quantity int, lastKnown Money) (Money, *Tier, error) {
	if quantity <= 0 {
		return 0, nil, ErrInvalidQuantity
	}
	if len(tiers) == 0 {
		return lastKnown, nil, nil
	}

	ordered := make([]Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MinQty > ordered[j].MinQty })

	for i := range ordered {
		t := ordered[i]
		if t.MinQty > quantity {
			continue
		}
		if t.MaxQty > 0 && quantity > t.MaxQty {
			continue
		}
		return t.Amount, &t, nil
	}

	// No break contains the quantity: the base price applies. Without an
	// explicit base the lowest break stands in for it.
	base := baseTier(ordered)
	if base == nil {
		lowest := ordered[len(ordered)-1]
		base = &lowest
	}
	return base.Amount, base, nil
}

// BasePrice returns the variant's un-tiered price, falling back to lastKnown
// when the tier set is empty.
func BasePrice(tiers []Tier, lastKnown Money) Money {
	base := baseTier(tiers)
	if base != nil {
		return base.Amount
	}
	if len(tiers) > 0 {
		lowest := tiers[0]
		for _, t := range tiers[1:] {
			if t.MinQty < lowest.MinQty {
				lowest = t
			}
		}
		return lowest.Amount
	}
	return lastKnown
}

// SavingsPercent reports the rounded percentage saved by the tier relative
// to the base price. A zero base yields zero to avoid division errors.
func SavingsPercent(tier Tier, basePrice Money) int {
	if basePrice <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(tier.Amount)/float64(basePrice)) * 100))
}

func baseTier(tiers []Tier) *Tier {
	for i := range tiers {
		if tiers[i].MinQty <= 1 {
			return &tiers[i]
		}
	}
	return nil
}
