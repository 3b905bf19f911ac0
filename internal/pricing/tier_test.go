package pricing

import "testing"

func TestResolvePriceQuantityBreaks(t *testing.T) {
	tiers := []Tier{
		{Slug: "retail", MinQty: 1, MaxQty: 9, Amount: 1000},
		{Slug: "bulk", MinQty: 10, Amount: 800},
	}

	price, tier, err := ResolvePrice(tiers, 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1000 || tier == nil || tier.Slug != "retail" {
		t.Fatalf("expected retail 1000, got %d (%v)", price, tier)
	}

	price, tier, err = ResolvePrice(tiers, 12, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 800 || tier == nil || tier.Slug != "bulk" {
		t.Fatalf("expected bulk 800, got %d (%v)", price, tier)
	}
	if savings := SavingsPercent(*tier, 1000); savings != 20 {
		t.Fatalf("expected 20%% savings, got %d", savings)
	}
}

func TestResolvePriceRejectsInvalidQuantity(t *testing.T) {
	if _, _, err := ResolvePrice(nil, 0, 500); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, _, err := ResolvePrice(nil, -3, 500); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestResolvePriceFallsBackToLastKnown(t *testing.T) {
	price, tier, err := ResolvePrice(nil, 2, 1500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1500 || tier != nil {
		t.Fatalf("expected last known 1500 with no tier, got %d (%v)", price, tier)
	}
}

func TestResolvePriceFallsBackToLowestBreak(t *testing.T) {
	// No explicit base price: the lowest break stands in for it.
	tiers := []Tier{
		{Slug: "case", MinQty: 24, Amount: 700},
		{Slug: "pack", MinQty: 6, Amount: 900},
	}
	price, tier, err := ResolvePrice(tiers, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 900 || tier == nil || tier.Slug != "pack" {
		t.Fatalf("expected pack 900, got %d (%v)", price, tier)
	}
}

func TestResolvePriceMonotonic(t *testing.T) {
	tiers := []Tier{
		{Slug: "retail", MinQty: 1, Amount: 1000},
		{Slug: "pack", MinQty: 6, Amount: 900},
		{Slug: "bulk", MinQty: 12, Amount: 750},
	}
	prev := Money(1 << 62)
	for qty := 1; qty <= 30; qty++ {
		price, _, err := ResolvePrice(tiers, qty, 0)
		if err != nil {
			t.Fatalf("qty %d: %v", qty, err)
		}
		if price > prev {
			t.Fatalf("price increased with quantity: qty %d price %d > %d", qty, price, prev)
		}
		prev = price
	}
}

func TestSavingsPercentZeroBase(t *testing.T) {
	if got := SavingsPercent(Tier{Amount: 800}, 0); got != 0 {
		t.Fatalf("expected 0 for zero base, got %d", got)
	}
}
