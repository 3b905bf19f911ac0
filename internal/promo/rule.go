package promo

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRuleNotFound is returned when a referenced rule no longer exists at
	// apply time. Recoverable and user visible, never a crash.
	ErrRuleNotFound = errors.New("promo: rule not found")
	// ErrRuleInactive is returned when the rule status is not active.
	ErrRuleInactive = errors.New("promo: rule not active")
	// ErrRuleExpired is returned outside the rule's validity window.
	ErrRuleExpired = errors.New("promo: rule outside validity window")
	// ErrUsageLimitReached indicates the rule exhausted its redemption quota.
	ErrUsageLimitReached = errors.New("promo: usage limit reached")
	// ErrMinPurchaseUnmet indicates the pre-discount subtotal is too low.
	ErrMinPurchaseUnmet = errors.New("promo: minimum purchase not met")
	// ErrTriggerUnmet indicates the trigger condition does not hold.
	ErrTriggerUnmet = errors.New("promo: trigger condition not met")
	// ErrAlreadyApplied indicates the rule's reward is already on the cart.
	ErrAlreadyApplied = errors.New("promo: rule already applied")
)

// Kind classifies a promotion rule.
type Kind string

const (
	KindPWP        Kind = "pwp"
	KindMembership Kind = "membership"
	KindCoupon     Kind = "coupon"
)

// TriggerKind identifies what condition arms the rule.
type TriggerKind string

const (
	TriggerNone      TriggerKind = "none"
	TriggerCartValue TriggerKind = "cart_value"
	TriggerProduct   TriggerKind = "product"
)

// RewardKind identifies how the reward amount is computed.
type RewardKind string

const (
	RewardPercent RewardKind = "percent"
	RewardFixed   RewardKind = "fixed"
)

// StatusActive is the only status under which a rule is evaluated.
const StatusActive = "active"

// Rule captures the runtime constraints of a promotion: PWP offer,
// membership promo or coupon. Administered elsewhere; read-only here.
type Rule struct {
	ID               uuid.UUID
	Kind             Kind
	Name             string
	Code             string
	Status           string
	StartsAt         *time.Time
	EndsAt           *time.Time
	UsageLimit       *int32
	UsedCount        int32
	TriggerKind      TriggerKind
	TriggerCartValue int64
	TriggerProductID *uuid.UUID
	RewardKind       RewardKind
	RewardValue      int64
	RewardPercentBps int32
	MinPurchase      int64
	RewardVariantID  *uuid.UUID
	RewardTitle      string
}

// AdjustmentCode returns the ledger ownership code the rule writes under.
func (r Rule) AdjustmentCode() string {
	switch r.Kind {
	case KindPWP:
		return "PWP_" + r.ID.String()
	case KindCoupon:
		return "COUPON_" + r.Code
	default:
		return "MEMBERSHIP_PROMO_" + r.ID.String()
	}
}

// Validate checks the rule's own lifecycle constraints at the given instant.
func (r Rule) Validate(now time.Time) error {
	if r.Status != StatusActive {
		return ErrRuleInactive
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return ErrRuleExpired
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return ErrRuleExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}
