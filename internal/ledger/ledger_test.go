package ledger

import (
	"testing"

	"github.com/google/uuid"
)

func TestApplyUpsertsByCode(t *testing.T) {
	promoID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	adjs := Apply(nil, MembershipPromo(promoID, 500, "Member discount"))
	adjs = Apply(adjs, Coupon("SAVE10", 2000, "Coupon SAVE10"))

	// Re-apply with a new amount replaces in place.
	adjs = Apply(adjs, MembershipPromo(promoID, 700, "Member discount"))
	if len(adjs) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(adjs))
	}
	if adjs[0].Code() != "MEMBERSHIP_PROMO_"+promoID.String() {
		t.Fatalf("upsert broke ordering: %s", adjs[0].Code())
	}
	if adjs[0].Amount != -700 {
		t.Fatalf("expected replaced amount -700, got %d", adjs[0].Amount)
	}
	if adjs[1].Amount != -2000 {
		t.Fatalf("coupon adjustment disturbed: %d", adjs[1].Amount)
	}
}

func TestApplyIdempotent(t *testing.T) {
	promoID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	once := Apply(nil, MembershipPromo(promoID, 500, "promo"))
	twice := Apply(once, MembershipPromo(promoID, 500, "promo"))
	if len(once) != len(twice) {
		t.Fatalf("re-apply grew the set: %d vs %d", len(once), len(twice))
	}
	if !once[0].Equal(twice[0]) {
		t.Fatalf("re-apply changed the adjustment: %+v vs %+v", once[0], twice[0])
	}
}

func TestAdjustmentEqualFollowsPromotionID(t *testing.T) {
	promoID := uuid.MustParse("44444444-4444-4444-4444-444444444444")
	a := MembershipPromo(promoID, 500, "promo")
	b := MembershipPromo(promoID, 500, "promo")
	if !a.Equal(b) {
		t.Fatal("equal-valued adjustments reported different")
	}
	other := uuid.MustParse("55555555-5555-5555-5555-555555555555")
	if a.Equal(MembershipPromo(other, 500, "promo")) {
		t.Fatal("different promotion ids reported equal")
	}
	if a.Equal(Coupon("SAVE10", 500, "promo")) {
		t.Fatal("nil and set promotion ids reported equal")
	}
}

func TestRemoveLeavesOtherSourcesUntouched(t *testing.T) {
	promoID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	adjs := Apply(nil, MembershipPromo(promoID, 500, "promo"))
	adjs = Apply(adjs, Coupon("SAVE10", 2000, "coupon"))
	adjs = Apply(adjs, PointsRedemption(100, "points"))

	remaining := Remove(adjs, PrefixMembershipPromo)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if _, ok := Find(remaining, "COUPON_SAVE10"); !ok {
		t.Fatal("coupon adjustment was dropped")
	}
	if _, ok := Find(remaining, CodePoints); !ok {
		t.Fatal("points adjustment was dropped")
	}
}

func TestRemoveAbsentCodeIsNoop(t *testing.T) {
	adjs := Apply(nil, Coupon("SAVE10", 2000, "coupon"))
	remaining := Remove(adjs, PrefixPWP)
	if len(remaining) != 1 {
		t.Fatalf("no-op removal mutated the set: %d", len(remaining))
	}
}

func TestTotalDiscount(t *testing.T) {
	adjs := Apply(nil, Coupon("SAVE10", 2000, "coupon"))
	adjs = Apply(adjs, PointsRedemption(500, "points"))
	if got := TotalDiscount(adjs); got != -2500 {
		t.Fatalf("expected -2500, got %d", got)
	}
	if got := TotalForKind(adjs, KindCoupon); got != -2000 {
		t.Fatalf("expected -2000 for coupons, got %d", got)
	}
}

func TestAmountsNormalisedNegative(t *testing.T) {
	adjs := Apply(nil, TierDiscount("bulk", 300, "Bulk price"))
	if adjs[0].Amount != -300 {
		t.Fatalf("expected normalised -300, got %d", adjs[0].Amount)
	}
}
