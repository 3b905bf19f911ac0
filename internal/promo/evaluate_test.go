package promo

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activePWPRule(threshold int64) Rule {
	reward := uuidMust("aaaaaaaa-0000-0000-0000-000000000001")
	return Rule{
		ID:               uuidMust("11111111-0000-0000-0000-000000000001"),
		Kind:             KindPWP,
		Name:             "Gift mug",
		Status:           StatusActive,
		TriggerKind:      TriggerCartValue,
		TriggerCartValue: threshold,
		RewardKind:       RewardFixed,
		RewardValue:      2_500,
		RewardVariantID:  &reward,
		RewardTitle:      "Mug",
	}
}

func TestCartValueTriggerReportsAmountNeeded(t *testing.T) {
	rule := activePWPRule(10_000)
	view := View{Subtotal: 8_000}

	result := EvaluateOne(view, rule, testNow)
	if result.Eligible {
		t.Fatal("expected not eligible below threshold")
	}
	if !errors.Is(result.Reason, ErrTriggerUnmet) {
		t.Fatalf("unexpected reason: %v", result.Reason)
	}
	if result.AmountNeeded == nil || *result.AmountNeeded != 2_000 {
		t.Fatalf("expected amount needed 2000, got %v", result.AmountNeeded)
	}

	view.Subtotal = 10_500
	view.RewardPrices = map[uuid.UUID]int64{*rule.RewardVariantID: 2_500}
	result = EvaluateOne(view, rule, testNow)
	if !result.Eligible {
		t.Fatalf("expected eligible above threshold, reason %v", result.Reason)
	}
	if result.AmountNeeded != nil {
		t.Fatalf("expected nil amount needed, got %d", *result.AmountNeeded)
	}
	if result.Discount != 2_500 {
		t.Fatalf("expected reward 2500, got %d", result.Discount)
	}
}

func TestProductTrigger(t *testing.T) {
	productID := uuidMust("bbbbbbbb-0000-0000-0000-000000000001")
	rule := activePWPRule(0)
	rule.TriggerKind = TriggerProduct
	rule.TriggerProductID = &productID

	view := View{Lines: []LineView{{ProductID: uuidMust("cccccccc-0000-0000-0000-000000000001"), Subtotal: 5_000}}}
	if EvaluateOne(view, rule, testNow).Eligible {
		t.Fatal("expected not eligible without trigger product")
	}

	view.Lines = append(view.Lines, LineView{ProductID: productID, Subtotal: 3_000})
	view.RewardPrices = map[uuid.UUID]int64{*rule.RewardVariantID: 2_500}
	if !EvaluateOne(view, rule, testNow).Eligible {
		t.Fatal("expected eligible with trigger product present")
	}
}

func TestRewardLinesDoNotSatisfyProductTrigger(t *testing.T) {
	productID := uuidMust("bbbbbbbb-0000-0000-0000-000000000002")
	rule := activePWPRule(0)
	rule.TriggerKind = TriggerProduct
	rule.TriggerProductID = &productID

	view := View{Lines: []LineView{{ProductID: productID, Reward: true, Subtotal: 2_500}}}
	if EvaluateOne(view, rule, testNow).Eligible {
		t.Fatal("reward line must not satisfy the product trigger")
	}
}

func TestAlreadyAppliedRejected(t *testing.T) {
	rule := activePWPRule(5_000)
	view := View{
		Subtotal:     20_000,
		AppliedCodes: map[string]bool{rule.AdjustmentCode(): true},
	}
	result := EvaluateOne(view, rule, testNow)
	if result.Eligible {
		t.Fatal("expected re-trigger of applied rule to be rejected")
	}
	if !errors.Is(result.Reason, ErrAlreadyApplied) {
		t.Fatalf("unexpected reason: %v", result.Reason)
	}
}

func TestLifecycleRejections(t *testing.T) {
	past := testNow.Add(-48 * time.Hour)
	future := testNow.Add(48 * time.Hour)
	capped := int32(10)

	cases := []struct {
		name string
		mut  func(*Rule)
		want error
	}{
		{"inactive", func(r *Rule) { r.Status = "non-active" }, ErrRuleInactive},
		{"not started", func(r *Rule) { r.StartsAt = &future }, ErrRuleExpired},
		{"expired", func(r *Rule) { r.EndsAt = &past }, ErrRuleExpired},
		{"usage cap", func(r *Rule) { r.UsageLimit = &capped; r.UsedCount = 10 }, ErrUsageLimitReached},
	}
	for _, tc := range cases {
		rule := activePWPRule(0)
		tc.mut(&rule)
		result := EvaluateOne(View{Subtotal: 50_000}, rule, testNow)
		if result.Eligible {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		if !errors.Is(result.Reason, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, result.Reason)
		}
	}
}

func TestCouponPercentReward(t *testing.T) {
	rule := Rule{
		ID:               uuidMust("22222222-0000-0000-0000-000000000001"),
		Kind:             KindCoupon,
		Code:             "SAVE10",
		Status:           StatusActive,
		TriggerKind:      TriggerNone,
		RewardKind:       RewardPercent,
		RewardPercentBps: 1000,
	}
	result := EvaluateOne(View{Subtotal: 20_000}, rule, testNow)
	if !result.Eligible {
		t.Fatalf("expected eligible, reason %v", result.Reason)
	}
	if result.Discount != 2_000 {
		t.Fatalf("expected 10%% of 20000 = 2000, got %d", result.Discount)
	}
}

func TestFixedRewardCappedAtBase(t *testing.T) {
	rule := Rule{
		ID:          uuidMust("33333333-0000-0000-0000-000000000001"),
		Kind:        KindMembership,
		Status:      StatusActive,
		TriggerKind: TriggerNone,
		RewardKind:  RewardFixed,
		RewardValue: 99_999,
	}
	result := EvaluateOne(View{Subtotal: 4_000}, rule, testNow)
	if result.Discount != 4_000 {
		t.Fatalf("expected capped discount 4000, got %d", result.Discount)
	}
}

func TestMinPurchase(t *testing.T) {
	rule := Rule{
		ID:          uuidMust("44444444-0000-0000-0000-000000000001"),
		Kind:        KindMembership,
		Status:      StatusActive,
		TriggerKind: TriggerNone,
		RewardKind:  RewardFixed,
		RewardValue: 500,
		MinPurchase: 10_000,
	}
	result := EvaluateOne(View{Subtotal: 9_999}, rule, testNow)
	if result.Eligible || !errors.Is(result.Reason, ErrMinPurchaseUnmet) {
		t.Fatalf("expected min purchase rejection, got %+v", result)
	}
}

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}
