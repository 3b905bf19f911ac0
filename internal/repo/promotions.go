package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/harga-api/internal/promo"
)

// PromotionRepo reads promotion rules and tracks redemption counts.
type PromotionRepo struct {
	Pool *pgxpool.Pool
}

const ruleColumns = `
id, kind, name, code, status, starts_at, ends_at,
usage_limit, used_count, trigger_kind, trigger_cart_value, trigger_product_id,
reward_kind, reward_value, reward_percent_bps, min_purchase,
reward_variant_id, reward_title`

func scanRule(row pgx.Row) (promo.Rule, error) {
	var r promo.Rule
	err := row.Scan(
		&r.ID, &r.Kind, &r.Name, &r.Code, &r.Status, &r.StartsAt, &r.EndsAt,
		&r.UsageLimit, &r.UsedCount, &r.TriggerKind, &r.TriggerCartValue, &r.TriggerProductID,
		&r.RewardKind, &r.RewardValue, &r.RewardPercentBps, &r.MinPurchase,
		&r.RewardVariantID, &r.RewardTitle,
	)
	return r, err
}

// ListActiveRules returns active rules of one kind. Window and usage checks
// stay in the evaluator so an expired rule can still be reported by name.
func (r PromotionRepo) ListActiveRules(ctx context.Context, kind promo.Kind) ([]promo.Rule, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM promotion_rules WHERE kind = $1 AND status = $2 ORDER BY created_at`,
		string(kind), promo.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("repo: list rules: %w", err)
	}
	defer rows.Close()

	var out []promo.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate rules: %w", err)
	}
	return out, nil
}

// GetRule loads a rule by id.
func (r PromotionRepo) GetRule(ctx context.Context, ruleID uuid.UUID) (promo.Rule, error) {
	rule, err := scanRule(r.Pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM promotion_rules WHERE id = $1`, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return promo.Rule{}, promo.ErrRuleNotFound
		}
		return promo.Rule{}, fmt.Errorf("repo: get rule: %w", err)
	}
	return rule, nil
}

// GetCouponByCode loads a coupon rule by its code, case-insensitively.
func (r PromotionRepo) GetCouponByCode(ctx context.Context, code string) (promo.Rule, error) {
	rule, err := scanRule(r.Pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM promotion_rules WHERE kind = 'coupon' AND upper(code) = upper($1)`,
		strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return promo.Rule{}, promo.ErrRuleNotFound
		}
		return promo.Rule{}, fmt.Errorf("repo: get coupon: %w", err)
	}
	return rule, nil
}

// ExpireRules marks active rules whose validity window has closed. Returns
// the number of rules transitioned.
func (r PromotionRepo) ExpireRules(ctx context.Context) (int64, error) {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE promotion_rules SET status = 'expired', updated_at = now()
		 WHERE status = $1 AND ends_at IS NOT NULL AND ends_at < now()`, promo.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("repo: expire rules: %w", err)
	}
	return tag.RowsAffected(), nil
}

// IncrementRedemption bumps the used count once an order carrying the rule
// is placed. Cart-time application never consumes quota.
func (r PromotionRepo) IncrementRedemption(ctx context.Context, ruleID uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE promotion_rules SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("repo: increment redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrRuleNotFound
	}
	return nil
}
