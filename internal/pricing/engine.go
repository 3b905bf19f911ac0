package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Line describes a cart line item used for totals calculation. UnitPrice is
// the tier-correct price, not necessarily the price currently stored on the
// cart. Suspended reward lines stay in the cart but are excluded here.
type Line struct {
	Qty       int
	UnitPrice Money
	Reward    bool
	Suspended bool
}

// Discounts groups per-source discount amounts as positive values.
type Discounts struct {
	PWP        Money
	Adjustment Money
	Points     Money
}

// Summary aggregates computed pricing components. Every surface that shows
// a total (cart view, checkout, receipt) renders from this one struct.
type Summary struct {
	Subtotal           Money
	PWPDiscount        Money
	AdjustmentDiscount Money
	PointsDiscount     Money
	TotalDiscount      Money
	Shipping           Money
	Tax                Money
	Total              Money
}

// Compute calculates cart totals given the provided inputs. The payable
// total is clamped at zero so misconfigured discounts can never drive a
// cart negative.
func Compute(lines []Line, d Discounts, taxBps int, shipping Money) Summary {
	var subtotal Money
	for _, ln := range lines {
		if ln.Qty <= 0 || ln.Suspended {
			continue
		}
		subtotal += Money(ln.Qty) * ln.UnitPrice
	}

	discount := clampNonNegative(d.PWP) + clampNonNegative(d.Adjustment) + clampNonNegative(d.Points)
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	if taxable < 0 {
		taxable = 0
	}
	tax := (taxable * Money(taxBps)) / 10000
	if shipping < 0 {
		shipping = 0
	}
	total := subtotal + shipping + tax - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal:           subtotal,
		PWPDiscount:        clampNonNegative(d.PWP),
		AdjustmentDiscount: clampNonNegative(d.Adjustment),
		PointsDiscount:     clampNonNegative(d.Points),
		TotalDiscount:      discount,
		Shipping:           shipping,
		Tax:                tax,
		Total:              total,
	}
}

func clampNonNegative(v Money) Money {
	if v < 0 {
		return 0
	}
	return v
}
