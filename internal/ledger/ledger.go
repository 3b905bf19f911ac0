// Package ledger maintains the per-line-item set of named discount
// adjustments. Mutations are idempotent upserts keyed by adjustment code
// and never disturb adjustments owned by other discount sources.
package ledger

import "strings"

// Apply upserts adj into the set. An existing adjustment with the same code
// is replaced in place, preserving its position; every other adjustment is
// returned untouched. Re-applying the same source is therefore a no-op at
// the set level.
func Apply(adjs []Adjustment, adj Adjustment) []Adjustment {
	if adj.Amount > 0 {
		adj.Amount = -adj.Amount
	}
	code := adj.Code()
	out := make([]Adjustment, len(adjs))
	copy(out, adjs)
	for i := range out {
		if out[i].Code() == code {
			out[i] = adj
			return out
		}
	}
	return append(out, adj)
}

// Remove drops every adjustment whose code starts with codePrefix and
// returns the rest unchanged. Removing an absent code is a no-op.
func Remove(adjs []Adjustment, codePrefix string) []Adjustment {
	if codePrefix == "" {
		return adjs
	}
	out := make([]Adjustment, 0, len(adjs))
	for _, a := range adjs {
		if strings.HasPrefix(a.Code(), codePrefix) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Find returns the adjustment carrying the exact code, if present.
func Find(adjs []Adjustment, code string) (Adjustment, bool) {
	for _, a := range adjs {
		if a.Code() == code {
			return a, true
		}
	}
	return Adjustment{}, false
}

// TotalDiscount sums all adjustment amounts on the line item. Amounts are
// stored negative, so the result is zero or negative.
func TotalDiscount(adjs []Adjustment) int64 {
	var total int64
	for _, a := range adjs {
		total += a.Amount
	}
	return total
}

// TotalForKind sums the amounts belonging to one discount source kind.
func TotalForKind(adjs []Adjustment, kind Kind) int64 {
	var total int64
	for _, a := range adjs {
		if a.Kind == kind {
			total += a.Amount
		}
	}
	return total
}
