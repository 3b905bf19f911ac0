package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/harga-api/internal/events"
	"github.com/noah-isme/harga-api/internal/ledger"
	"github.com/noah-isme/harga-api/internal/obs"
	"github.com/noah-isme/harga-api/internal/pricing"
	"github.com/noah-isme/harga-api/internal/promo"
)

// Reconciler recomputes the correct price and discount state for a cart and
// converges the stored adjustments to it. Each discount source is an
// independent state machine; reconciling one source never disturbs another.
type Reconciler struct {
	Store         Store
	Catalog       Catalog
	Inventory     Inventory
	Membership    Membership
	Promotions    Promotions
	Events        *events.Bus
	Log           zerolog.Logger
	Now           func() time.Time
	LookupTimeout time.Duration
	TaxBps        int
	// PointValue is the discount in minor units granted per loyalty point.
	PointValue int64
}

func (r *Reconciler) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) pointValue() int64 {
	if r == nil || r.PointValue <= 0 {
		return 1
	}
	return r.PointValue
}

// lookupCtx derives a caller-imposed timeout for catalog/promotion reads so
// a slow collaborator can never stall the whole cart read.
func (r *Reconciler) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// pricedItem pairs a line item with its tier-resolved price.
type pricedItem struct {
	item     LineItem
	correct  int64
	base     int64
	tier     *pricing.Tier
	degraded bool
}

func (p pricedItem) needsPriceSync() bool {
	return !p.item.Reward && p.correct != p.item.UnitPrice
}

// priceItems resolves the tier-correct unit price for every line. A failed
// tier lookup degrades to the stored price instead of failing the cart.
func (r *Reconciler) priceItems(ctx context.Context, c Cart) []pricedItem {
	out := make([]pricedItem, 0, len(c.Items))
	for _, item := range c.Items {
		p := pricedItem{item: item, correct: item.UnitPrice, base: item.UnitPrice}
		if item.Reward || item.Qty <= 0 {
			out = append(out, p)
			continue
		}
		lctx, cancel := r.lookupCtx(ctx)
		tiers, err := r.Catalog.ListPriceTiers(lctx, item.VariantID)
		cancel()
		if err != nil {
			p.degraded = true
			r.degraded(ctx, "catalog", err)
			out = append(out, p)
			continue
		}
		price, tier, err := pricing.ResolvePrice(tiers, item.Qty, item.UnitPrice)
		if err != nil {
			p.degraded = true
			out = append(out, p)
			continue
		}
		p.correct = price
		p.tier = tier
		p.base = pricing.BasePrice(tiers, item.UnitPrice)
		out = append(out, p)
	}
	return out
}

// buildView projects the priced cart into the evaluator's read model. The
// subtotal uses tier-correct prices and excludes PWP reward lines so a
// reward can never help trigger itself.
func (r *Reconciler) buildView(c Cart, priced []pricedItem) promo.View {
	view := promo.View{
		AppliedCodes: c.AppliedCodes(),
		RewardPrices: make(map[uuid.UUID]int64),
	}
	for _, p := range priced {
		line := promo.LineView{
			ProductID: p.item.ProductID,
			VariantID: p.item.VariantID,
			Reward:    p.item.Reward,
			Subtotal:  int64(p.item.Qty) * p.correct,
		}
		view.Lines = append(view.Lines, line)
		if !p.item.Reward {
			view.Subtotal += line.Subtotal
		}
	}
	return view
}

// loadRewardPrices resolves catalog prices for each rule's reward variant.
// Failures degrade to a zero-value reward rather than failing evaluation.
func (r *Reconciler) loadRewardPrices(ctx context.Context, view *promo.View, rules []promo.Rule) {
	for _, rule := range rules {
		if rule.RewardVariantID == nil {
			continue
		}
		if _, ok := view.RewardPrices[*rule.RewardVariantID]; ok {
			continue
		}
		lctx, cancel := r.lookupCtx(ctx)
		price, err := r.Catalog.GetVariantPrice(lctx, *rule.RewardVariantID)
		cancel()
		if err != nil {
			r.degraded(ctx, "catalog", err)
			continue
		}
		view.RewardPrices[*rule.RewardVariantID] = price
	}
}

// listPWPRules fetches active PWP rules, degrading to none on failure so an
// unavailable promotion store never fails the whole cart read.
func (r *Reconciler) listPWPRules(ctx context.Context) ([]promo.Rule, bool) {
	lctx, cancel := r.lookupCtx(ctx)
	defer cancel()
	rules, err := r.Promotions.ListActiveRules(lctx, promo.KindPWP)
	if err != nil {
		r.degraded(ctx, "promotions", err)
		return nil, true
	}
	return rules, false
}

// Snapshot computes the full pricing view of a cart: tier-correct prices,
// per-line price drift flags, eligible PWP offers and totals.
func (r *Reconciler) Snapshot(ctx context.Context, cartID uuid.UUID) (Snapshot, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.snapshotOf(ctx, c)
}

func (r *Reconciler) snapshotOf(ctx context.Context, c Cart) (Snapshot, error) {
	priced := r.priceItems(ctx, c)
	view := r.buildView(c, priced)

	rules, degradedRules := r.listPWPRules(ctx)
	r.loadRewardPrices(ctx, &view, rules)
	evaluated := promo.Evaluate(view, rules, r.now())

	snap := buildSnapshot(c, priced, evaluated, view, r.TaxBps)
	snap.Degraded = snap.Degraded || degradedRules

	// Suspended rewards report the shortfall needed to restore them.
	for i := range snap.Items {
		it := &snap.Items[i]
		if !it.Suspended || !it.Reward || it.RewardRuleID == nil {
			continue
		}
		rule, err := r.getRule(ctx, *it.RewardRuleID)
		if err != nil {
			continue
		}
		if ok, needed := promo.TriggerSatisfied(view, rule); !ok {
			it.AmountNeeded = needed
		}
	}
	return snap, nil
}

// Reconcile re-runs tier resolution and converges the cart's adjustment
// state: refreshes the membership-tier discount, suspends PWP rewards whose
// trigger no longer holds and restores those whose trigger holds again.
// Stored unit prices are never overwritten here; drift is reported per item
// so checkout can force a confirmation before payment capture.
func (r *Reconciler) Reconcile(ctx context.Context, cartID uuid.UUID) (Snapshot, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		countReconcile("error")
		return Snapshot{}, err
	}
	priced := r.priceItems(ctx, c)
	view := r.buildView(c, priced)

	if err := r.refreshTierDiscount(ctx, &c, priced); err != nil {
		r.Log.Warn().Err(err).Str("cart_id", c.ID.String()).Msg("refresh tier discount")
	}
	if err := r.reconcileRewards(ctx, &c, view); err != nil {
		countReconcile("error")
		return Snapshot{}, err
	}

	// Reload so the snapshot reflects the converged state.
	fresh, err := r.loadCart(ctx, cartID)
	if err != nil {
		countReconcile("error")
		return Snapshot{}, err
	}
	snap, err := r.snapshotOf(ctx, fresh)
	if err != nil {
		countReconcile("error")
		return Snapshot{}, err
	}
	if snap.NeedsPriceSync {
		if obs.PriceSyncRequiredTotal != nil {
			obs.PriceSyncRequiredTotal.Inc()
		}
		r.emit(ctx, events.TopicPriceSyncRequired, c.ID, map[string]any{"cartId": c.ID.String()})
	}
	countReconcile("ok")
	return snap, nil
}

// refreshTierDiscount re-applies the membership-tier percentage discount on
// every non-reward line, or strips it when the customer no longer carries a
// discounted tier. Writes are per line item so a failure partway leaves the
// other lines' adjustments intact.
func (r *Reconciler) refreshTierDiscount(ctx context.Context, c *Cart, priced []pricedItem) error {
	if c.CustomerID == nil {
		return nil
	}
	lctx, cancel := r.lookupCtx(ctx)
	slug, bps, err := r.Membership.TierDiscount(lctx, *c.CustomerID)
	cancel()
	if err != nil {
		// Keep the existing tier adjustments: a flapping membership
		// service must not strip a discount the customer already saw.
		r.degraded(ctx, "membership", err)
		return nil
	}

	for i := range priced {
		p := priced[i]
		if p.item.Reward {
			continue
		}
		var next []ledger.Adjustment
		if bps > 0 {
			amount := int64(p.item.Qty) * p.correct * int64(bps) / 10000
			adj := ledger.TierDiscount(slug, amount, fmt.Sprintf("%s tier discount", slug))
			next = ledger.Apply(ledger.Remove(p.item.Adjustments, ledger.PrefixTier), adj)
		} else {
			next = ledger.Remove(p.item.Adjustments, ledger.PrefixTier)
		}
		if equalAdjustments(p.item.Adjustments, next) {
			continue
		}
		if err := r.Store.SetLineItemAdjustments(ctx, c.ID, p.item.ID, next); err != nil {
			return err
		}
		c.Item(p.item.ID).Adjustments = next
	}

	state := c.Discount
	state.TierSlug = slug
	state.TierDiscountBps = bps
	if state == c.Discount {
		return nil
	}
	if err := r.Store.UpdateDiscountState(ctx, c.ID, state); err != nil {
		return err
	}
	c.Discount = state
	return nil
}

// reconcileRewards walks the PWP reward lines and flips their suspension
// state to match the trigger. A reward whose trigger stopped holding is
// suspended, never deleted, so items do not vanish from the cart
// mid-checkout; its adjustment amount is left as applied.
func (r *Reconciler) reconcileRewards(ctx context.Context, c *Cart, view promo.View) error {
	for i := range c.Items {
		item := &c.Items[i]
		if !item.Reward || item.RewardRuleID == nil {
			continue
		}
		rule, err := r.getRule(ctx, *item.RewardRuleID)
		satisfied := false
		if err == nil && rule.Validate(r.now()) == nil {
			satisfied, _ = promo.TriggerSatisfied(view, rule)
		}
		switch {
		case !satisfied && !item.Suspended:
			if err := r.Store.SetLineItemSuspended(ctx, c.ID, item.ID, true); err != nil {
				return err
			}
			item.Suspended = true
			countSuspension("suspended")
			r.emit(ctx, events.TopicPWPSuspended, c.ID, map[string]any{"itemId": item.ID.String(), "ruleId": item.RewardRuleID.String()})
		case satisfied && item.Suspended:
			if err := r.Store.SetLineItemSuspended(ctx, c.ID, item.ID, false); err != nil {
				return err
			}
			item.Suspended = false
			countSuspension("restored")
			r.emit(ctx, events.TopicPWPRestored, c.ID, map[string]any{"itemId": item.ID.String(), "ruleId": item.RewardRuleID.String()})
		}
	}
	return nil
}

// SyncPrices overwrites drifted stored prices with the tier-correct ones.
// This is the explicit confirmation step checkout invokes after surfacing
// needsPriceSync to the shopper.
func (r *Reconciler) SyncPrices(ctx context.Context, cartID uuid.UUID) (Snapshot, error) {
	c, err := r.loadCart(ctx, cartID)
	if err != nil {
		return Snapshot{}, err
	}
	priced := r.priceItems(ctx, c)
	synced := false
	for _, p := range priced {
		if !p.needsPriceSync() || p.degraded {
			continue
		}
		if err := r.Store.SetLineItemUnitPrice(ctx, c.ID, p.item.ID, p.correct); err != nil {
			return Snapshot{}, err
		}
		synced = true
	}
	if synced {
		r.emit(ctx, events.TopicPriceSynced, c.ID, map[string]any{"cartId": c.ID.String()})
	}
	return r.Snapshot(ctx, cartID)
}

func (r *Reconciler) loadCart(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	if r == nil || r.Store == nil {
		return Cart{}, errors.New("cart reconciler not configured")
	}
	if cartID == uuid.Nil {
		return Cart{}, fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	c, err := r.Store.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	return c, nil
}

func (r *Reconciler) getRule(ctx context.Context, ruleID uuid.UUID) (promo.Rule, error) {
	lctx, cancel := r.lookupCtx(ctx)
	defer cancel()
	return r.Promotions.GetRule(lctx, ruleID)
}

func (r *Reconciler) emit(ctx context.Context, topic string, cartID uuid.UUID, payload any) {
	if r.Events == nil {
		return
	}
	if _, err := r.Events.Emit(ctx, topic, cartID, payload); err != nil {
		r.Log.Warn().Err(err).Str("topic", topic).Msg("emit domain event")
	}
}

func (r *Reconciler) degraded(ctx context.Context, target string, err error) {
	if obs.UpstreamDegradedTotal != nil {
		obs.UpstreamDegradedTotal.WithLabelValues(target).Inc()
	}
	r.Log.Warn().Err(err).Str("target", target).Msg("upstream lookup degraded")
}

func countReconcile(result string) {
	if obs.ReconcileTotal != nil {
		obs.ReconcileTotal.WithLabelValues(result).Inc()
	}
}

func countSuspension(action string) {
	if obs.PWPSuspensionTotal != nil {
		obs.PWPSuspensionTotal.WithLabelValues(action).Inc()
	}
}

func countDiscountOp(source, op, result string) {
	if obs.DiscountApplyTotal != nil {
		obs.DiscountApplyTotal.WithLabelValues(source, op, result).Inc()
	}
}

func equalAdjustments(a, b []ledger.Adjustment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
