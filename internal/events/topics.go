package events

// Topic constants for domain events emitted by the pricing engine.
const (
	TopicPromoApplied      = "cart.promo.applied"
	TopicPromoRemoved      = "cart.promo.removed"
	TopicCouponApplied     = "cart.coupon.applied"
	TopicCouponRemoved     = "cart.coupon.removed"
	TopicPointsRedeemed    = "cart.points.redeemed"
	TopicPointsCanceled    = "cart.points.canceled"
	TopicPWPApplied        = "cart.pwp.applied"
	TopicPWPRemoved        = "cart.pwp.removed"
	TopicPWPSuspended      = "cart.pwp.suspended"
	TopicPWPRestored       = "cart.pwp.restored"
	TopicPriceSyncRequired = "cart.price.sync_required"
	TopicPriceSynced       = "cart.price.synced"
)
