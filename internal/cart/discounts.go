package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/common"
	"github.com/noah-isme/harga-api/internal/events"
	"github.com/noah-isme/harga-api/internal/ledger"
	"github.com/noah-isme/harga-api/internal/promo"
)

// Result is the payload returned by every apply/remove operation: the
// refreshed snapshot plus a human-readable confirmation.
type Result struct {
	Snapshot Snapshot `json:"snapshot"`
	Message  string   `json:"message"`
}

// ApplyMembershipPromo validates and attaches a membership promo to the
// cart. Re-applying the promo already on the cart is a no-op success.
func (r *Reconciler) ApplyMembershipPromo(ctx context.Context, cartID, promoID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("membership", "apply", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.PromoID != nil && *c.Discount.PromoID == promoID {
		countDiscountOp("membership", "apply", "noop")
		return r.result(ctx, c.ID, "Membership promo already applied")
	}

	rule, err := r.getRule(ctx, promoID)
	if err != nil {
		countDiscountOp("membership", "apply", "error")
		return Result{}, mapRuleErr(err)
	}
	if rule.Kind != promo.KindMembership {
		countDiscountOp("membership", "apply", "error")
		return Result{}, common.Invalid("not a membership promo", ErrInvalidInput)
	}

	eligibility, err := r.evaluateForApply(ctx, c, rule)
	if err != nil {
		countDiscountOp("membership", "apply", "rejected")
		return Result{}, err
	}

	// Replace semantics: only one membership promo at a time.
	if c.Discount.PromoID != nil {
		if err := r.stripPrefix(ctx, &c, ledger.PrefixMembershipPromo); err != nil {
			countDiscountOp("membership", "apply", "error")
			return Result{}, err
		}
	}
	adj := ledger.MembershipPromo(rule.ID, eligibility.Discount, rule.Name)
	if err := r.upsertAnchorAdjustment(ctx, &c, adj, ledger.PrefixMembershipPromo); err != nil {
		countDiscountOp("membership", "apply", "error")
		return Result{}, err
	}

	state := c.Discount
	id := promoID
	state.PromoID = &id
	state.PromoName = rule.Name
	state.PromoKind = string(rule.RewardKind)
	state.PromoValue = eligibility.Discount
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("membership", "apply", "error")
		return Result{}, err
	}

	countDiscountOp("membership", "apply", "ok")
	r.emit(ctx, events.TopicPromoApplied, c.ID, map[string]any{"promoId": promoID.String(), "discount": eligibility.Discount})
	return r.result(ctx, c.ID, fmt.Sprintf("Promo %q applied", rule.Name))
}

// RemoveMembershipPromo clears the applied membership promo. Removing a
// promo that was never applied is a no-op success.
func (r *Reconciler) RemoveMembershipPromo(ctx context.Context, cartID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("membership", "remove", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.PromoID == nil {
		countDiscountOp("membership", "remove", "noop")
		return r.result(ctx, c.ID, "No membership promo applied")
	}

	if err := r.stripPrefix(ctx, &c, ledger.PrefixMembershipPromo); err != nil {
		countDiscountOp("membership", "remove", "error")
		return Result{}, err
	}
	state := c.Discount
	state.PromoID = nil
	state.PromoName = ""
	state.PromoKind = ""
	state.PromoValue = 0
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("membership", "remove", "error")
		return Result{}, err
	}

	countDiscountOp("membership", "remove", "ok")
	r.emit(ctx, events.TopicPromoRemoved, c.ID, map[string]any{"cartId": c.ID.String()})
	return r.result(ctx, c.ID, "Membership promo removed")
}

// ApplyCoupon validates and attaches a coupon by code. Applying a different
// coupon replaces the previous one; re-applying the same code is a no-op.
func (r *Reconciler) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		countDiscountOp("coupon", "apply", "error")
		return Result{}, common.Invalid("coupon code required", ErrInvalidInput)
	}
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("coupon", "apply", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.CouponCode == code {
		countDiscountOp("coupon", "apply", "noop")
		return r.result(ctx, c.ID, "Coupon already applied")
	}

	lctx, cancel := r.lookupCtx(ctx)
	rule, err := r.Promotions.GetCouponByCode(lctx, code)
	cancel()
	if err != nil {
		countDiscountOp("coupon", "apply", "error")
		return Result{}, mapRuleErr(err)
	}

	eligibility, err := r.evaluateForApply(ctx, c, rule)
	if err != nil {
		countDiscountOp("coupon", "apply", "rejected")
		return Result{}, err
	}

	// Replace semantics: only one coupon at a time.
	if c.Discount.CouponCode != "" {
		if err := r.stripPrefix(ctx, &c, ledger.PrefixCoupon); err != nil {
			countDiscountOp("coupon", "apply", "error")
			return Result{}, err
		}
	}
	adj := ledger.Coupon(rule.Code, eligibility.Discount, fmt.Sprintf("Coupon %s", rule.Code))
	if err := r.upsertAnchorAdjustment(ctx, &c, adj, ledger.PrefixCoupon); err != nil {
		countDiscountOp("coupon", "apply", "error")
		return Result{}, err
	}

	state := c.Discount
	state.CouponCode = rule.Code
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("coupon", "apply", "error")
		return Result{}, err
	}

	countDiscountOp("coupon", "apply", "ok")
	r.emit(ctx, events.TopicCouponApplied, c.ID, map[string]any{"code": rule.Code, "discount": eligibility.Discount})
	return r.result(ctx, c.ID, fmt.Sprintf("Coupon %s applied", rule.Code))
}

// RemoveCoupon clears the applied coupon; a no-op success when none is set.
func (r *Reconciler) RemoveCoupon(ctx context.Context, cartID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("coupon", "remove", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.CouponCode == "" {
		countDiscountOp("coupon", "remove", "noop")
		return r.result(ctx, c.ID, "No coupon applied")
	}
	if err := r.stripPrefix(ctx, &c, ledger.PrefixCoupon); err != nil {
		countDiscountOp("coupon", "remove", "error")
		return Result{}, err
	}
	state := c.Discount
	state.CouponCode = ""
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("coupon", "remove", "error")
		return Result{}, err
	}
	countDiscountOp("coupon", "remove", "ok")
	r.emit(ctx, events.TopicCouponRemoved, c.ID, map[string]any{"cartId": c.ID.String()})
	return r.result(ctx, c.ID, "Coupon removed")
}

// RedeemPoints converts loyalty points into a cart discount. The discount
// is capped at the current tier-correct subtotal.
func (r *Reconciler) RedeemPoints(ctx context.Context, cartID uuid.UUID, points int64) (Result, error) {
	if points <= 0 {
		countDiscountOp("points", "apply", "error")
		return Result{}, common.Invalid("points must be positive", ErrInvalidInput)
	}
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("points", "apply", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.PointsRedeemed == points {
		countDiscountOp("points", "apply", "noop")
		return r.result(ctx, c.ID, "Points already redeemed")
	}

	priced := r.priceItems(ctx, c)
	view := r.buildView(c, priced)
	discount := points * r.pointValue()
	if discount > view.Subtotal {
		discount = view.Subtotal
	}
	if discount <= 0 {
		countDiscountOp("points", "apply", "rejected")
		return Result{}, common.NotEligible("cart has nothing to discount", promo.ErrTriggerUnmet, map[string]any{"reason": "empty_cart"})
	}

	adj := ledger.PointsRedemption(discount, fmt.Sprintf("%d points redeemed", points))
	if err := r.upsertAnchorAdjustment(ctx, &c, adj, ledger.CodePoints); err != nil {
		countDiscountOp("points", "apply", "error")
		return Result{}, err
	}
	state := c.Discount
	state.PointsRedeemed = points
	state.PointsDiscount = discount
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("points", "apply", "error")
		return Result{}, err
	}
	countDiscountOp("points", "apply", "ok")
	r.emit(ctx, events.TopicPointsRedeemed, c.ID, map[string]any{"points": points, "discount": discount})
	return r.result(ctx, c.ID, fmt.Sprintf("%d points redeemed", points))
}

// CancelPoints returns redeemed points to the shopper; no-op when none.
func (r *Reconciler) CancelPoints(ctx context.Context, cartID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("points", "remove", "error")
		return Result{}, mapCartErr(err)
	}
	if c.Discount.PointsRedeemed == 0 {
		countDiscountOp("points", "remove", "noop")
		return r.result(ctx, c.ID, "No points redeemed")
	}
	if err := r.stripPrefix(ctx, &c, ledger.CodePoints); err != nil {
		countDiscountOp("points", "remove", "error")
		return Result{}, err
	}
	state := c.Discount
	state.PointsRedeemed = 0
	state.PointsDiscount = 0
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		countDiscountOp("points", "remove", "error")
		return Result{}, err
	}
	countDiscountOp("points", "remove", "ok")
	r.emit(ctx, events.TopicPointsCanceled, c.ID, map[string]any{"cartId": c.ID.String()})
	return r.result(ctx, c.ID, "Points redemption canceled")
}

// ApplyPWPOffer activates a purchase-with-purchase offer: the reward item
// is added as a quantity-1 reward line carrying the rule's adjustment.
func (r *Reconciler) ApplyPWPOffer(ctx context.Context, cartID, ruleID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, mapCartErr(err)
	}
	if c.RewardItemForRule(ruleID) != nil {
		countDiscountOp("pwp", "apply", "noop")
		return r.result(ctx, c.ID, "Offer already in cart")
	}

	rule, err := r.getRule(ctx, ruleID)
	if err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, mapRuleErr(err)
	}
	if rule.Kind != promo.KindPWP || rule.RewardVariantID == nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, common.Invalid("not a purchase-with-purchase offer", ErrInvalidInput)
	}

	eligibility, err := r.evaluateForApply(ctx, c, rule)
	if err != nil {
		countDiscountOp("pwp", "apply", "rejected")
		return Result{}, err
	}

	lctx, cancel := r.lookupCtx(ctx)
	price, err := r.Catalog.GetVariantPrice(lctx, *rule.RewardVariantID)
	cancel()
	if err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, common.Upstream("reward item price unavailable", err)
	}
	lctx, cancel = r.lookupCtx(ctx)
	available, err := r.Inventory.GetAvailableQuantity(lctx, *rule.RewardVariantID)
	cancel()
	if err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, common.Upstream("reward item stock unavailable", err)
	}
	if available < 1 {
		countDiscountOp("pwp", "apply", "rejected")
		return Result{}, common.NotEligible("reward item out of stock", promo.ErrTriggerUnmet, map[string]any{"reason": "out_of_stock"})
	}
	productID, err := r.Catalog.GetVariantProduct(ctx, *rule.RewardVariantID)
	if err != nil {
		productID = uuid.Nil
	}

	id := ruleID
	item := LineItem{
		ProductID:    productID,
		VariantID:    *rule.RewardVariantID,
		Title:        rule.RewardTitle,
		Qty:          1,
		UnitPrice:    price,
		Reward:       true,
		RewardRuleID: &id,
	}
	itemID, err := r.Store.AddRewardItem(ctx, c.ID, item)
	if err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, err
	}
	adjs := ledger.Apply(nil, ledger.PWPDiscount(rule.ID, eligibility.Discount, rule.Name))
	if err := r.Store.SetLineItemAdjustments(ctx, c.ID, itemID, adjs); err != nil {
		countDiscountOp("pwp", "apply", "error")
		return Result{}, err
	}

	countDiscountOp("pwp", "apply", "ok")
	r.emit(ctx, events.TopicPWPApplied, c.ID, map[string]any{"ruleId": ruleID.String(), "itemId": itemID.String()})
	return r.result(ctx, c.ID, fmt.Sprintf("%s added to cart", rule.RewardTitle))
}

// RemovePWPOffer deletes the reward line for the rule. Explicit removal by
// the shopper deletes the line; only automatic trigger failure suspends.
func (r *Reconciler) RemovePWPOffer(ctx context.Context, cartID, ruleID uuid.UUID) (Result, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countDiscountOp("pwp", "remove", "error")
		return Result{}, mapCartErr(err)
	}
	item := c.RewardItemForRule(ruleID)
	if item == nil {
		countDiscountOp("pwp", "remove", "noop")
		return r.result(ctx, c.ID, "Offer not in cart")
	}
	if err := r.Store.RemoveLineItem(ctx, c.ID, item.ID); err != nil {
		countDiscountOp("pwp", "remove", "error")
		return Result{}, err
	}
	countDiscountOp("pwp", "remove", "ok")
	r.emit(ctx, events.TopicPWPRemoved, c.ID, map[string]any{"ruleId": ruleID.String()})
	return r.result(ctx, c.ID, "Offer removed from cart")
}

// evaluateForApply re-validates a rule at apply time against the current
// cart and maps an ineligible outcome onto the error taxonomy.
func (r *Reconciler) evaluateForApply(ctx context.Context, c Cart, rule promo.Rule) (promo.Eligibility, error) {
	priced := r.priceItems(ctx, c)
	view := r.buildView(c, priced)
	if rule.Kind == promo.KindPWP && rule.RewardVariantID != nil {
		r.loadRewardPrices(ctx, &view, []promo.Rule{rule})
	}
	eligibility := promo.EvaluateOne(view, rule, r.now())
	if !eligibility.Eligible {
		details := map[string]any{"reason": reasonCode(eligibility.Reason)}
		if eligibility.AmountNeeded != nil {
			details["amountNeeded"] = *eligibility.AmountNeeded
		}
		return promo.Eligibility{}, common.NotEligible("promotion requirements not met", eligibility.Reason, details)
	}
	return eligibility, nil
}

// upsertAnchorAdjustment writes the adjustment onto the cart-wide anchor
// line. When a previous adjustment from the same source lives on a
// different line (the anchor may have been removed since), the stale one is
// stripped first so the code stays unique across the cart.
func (r *Reconciler) upsertAnchorAdjustment(ctx context.Context, c *Cart, adj ledger.Adjustment, prefix string) error {
	anchor := c.AnchorItem()
	if anchor == nil {
		return common.Invalid("cart has no items", ErrInvalidInput)
	}
	for i := range c.Items {
		item := &c.Items[i]
		if item.ID == anchor.ID {
			continue
		}
		next := ledger.Remove(item.Adjustments, prefix)
		if equalAdjustments(item.Adjustments, next) {
			continue
		}
		if err := r.Store.SetLineItemAdjustments(ctx, c.ID, item.ID, next); err != nil {
			return err
		}
		item.Adjustments = next
	}
	next := ledger.Apply(anchor.Adjustments, adj)
	if err := r.Store.SetLineItemAdjustments(ctx, c.ID, anchor.ID, next); err != nil {
		return err
	}
	anchor.Adjustments = next
	return nil
}

// stripPrefix removes every adjustment under the prefix across all lines.
// Writes are per line item; lines without the prefix are not rewritten.
func (r *Reconciler) stripPrefix(ctx context.Context, c *Cart, prefix string) error {
	for i := range c.Items {
		item := &c.Items[i]
		next := ledger.Remove(item.Adjustments, prefix)
		if equalAdjustments(item.Adjustments, next) {
			continue
		}
		if err := r.Store.SetLineItemAdjustments(ctx, c.ID, item.ID, next); err != nil {
			return err
		}
		item.Adjustments = next
	}
	return nil
}

func (r *Reconciler) result(ctx context.Context, cartID uuid.UUID, message string) (Result, error) {
	snap, err := r.Snapshot(ctx, cartID)
	if err != nil {
		return Result{}, err
	}
	return Result{Snapshot: snap, Message: message}, nil
}

func mapCartErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound("cart not found", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		return common.Invalid("invalid cart id", err)
	}
	return err
}

func mapRuleErr(err error) error {
	if errors.Is(err, promo.ErrRuleNotFound) {
		return common.NotFound("promotion no longer available", err)
	}
	return common.Upstream("promotion lookup failed", err)
}
