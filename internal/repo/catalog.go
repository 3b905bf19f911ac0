package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/harga-api/internal/catalog"
	"github.com/noah-isme/harga-api/internal/pricing"
)

// CatalogRepo reads variant prices, stock and tier schedules.
type CatalogRepo struct {
	Pool *pgxpool.Pool
}

// ListPriceTiers returns the variant's quantity-break schedule ordered by
// ascending minimum quantity.
func (r CatalogRepo) ListPriceTiers(ctx context.Context, variantID uuid.UUID) ([]pricing.Tier, error) {
	rows, err := r.Pool.Query(ctx, `
SELECT slug, min_qty, max_qty, amount
FROM price_tiers WHERE variant_id = $1
ORDER BY min_qty`, variantID)
	if err != nil {
		return nil, fmt.Errorf("repo: list price tiers: %w", err)
	}
	defer rows.Close()

	var out []pricing.Tier
	for rows.Next() {
		var t pricing.Tier
		if err := rows.Scan(&t.Slug, &t.MinQty, &t.MaxQty, &t.Amount); err != nil {
			return nil, fmt.Errorf("repo: scan price tier: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate price tiers: %w", err)
	}
	return out, nil
}

// GetVariant returns the variant's product and current base price.
func (r CatalogRepo) GetVariant(ctx context.Context, variantID uuid.UUID) (catalog.VariantInfo, error) {
	var info catalog.VariantInfo
	err := r.Pool.QueryRow(ctx,
		`SELECT product_id, price FROM product_variants WHERE id = $1`, variantID,
	).Scan(&info.ProductID, &info.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.VariantInfo{}, catalog.ErrVariantNotFound
		}
		return catalog.VariantInfo{}, fmt.Errorf("repo: get variant: %w", err)
	}
	return info, nil
}

// GetAvailableQuantity returns on-hand stock for a variant. An unknown
// variant reports zero stock rather than an error.
func (r CatalogRepo) GetAvailableQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	var stock int
	err := r.Pool.QueryRow(ctx,
		`SELECT stock FROM product_variants WHERE id = $1`, variantID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("repo: get stock: %w", err)
	}
	return stock, nil
}
