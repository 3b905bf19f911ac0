package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/obs"
	"github.com/noah-isme/harga-api/internal/pricing"
	"github.com/noah-isme/harga-api/internal/resilience"
)

// ErrVariantNotFound is returned when the variant does not exist.
var ErrVariantNotFound = errors.New("catalog: variant not found")

// VariantInfo is the slice of catalog data the pricing engine consumes.
type VariantInfo struct {
	ProductID uuid.UUID `json:"productId"`
	Price     int64     `json:"price"`
}

// Repo is the catalog read store.
type Repo interface {
	ListPriceTiers(ctx context.Context, variantID uuid.UUID) ([]pricing.Tier, error)
	GetVariant(ctx context.Context, variantID uuid.UUID) (VariantInfo, error)
}

// Service serves tier schedules and variant prices with a cache-aside Redis
// layer and a circuit breaker in front of the database. Implements the
// pricing lookups the cart reconciler depends on.
type Service struct {
	repo    Repo
	cache   *Cache
	breaker *resilience.Breaker
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repo    Repo
	Cache   *Cache
	Breaker *resilience.Breaker
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("catalog: repo is required")
	}
	return &Service{repo: cfg.Repo, cache: cfg.Cache, breaker: cfg.Breaker}, nil
}

func tiersKey(variantID uuid.UUID) string {
	return fmt.Sprintf("catalog:tiers:%s", variantID)
}

func variantKey(variantID uuid.UUID) string {
	return fmt.Sprintf("catalog:variant:%s", variantID)
}

// ListPriceTiers returns the quantity-break schedule for a variant, cheapest
// lookup first from cache. An empty schedule is a valid, cacheable answer.
func (s *Service) ListPriceTiers(ctx context.Context, variantID uuid.UUID) ([]pricing.Tier, error) {
	var tiers []pricing.Tier
	if hit, err := s.cache.GetJSON(ctx, tiersKey(variantID), &tiers); err == nil && hit {
		countTierCache("hit")
		return tiers, nil
	}
	countTierCache("miss")
	tiers, err := fetch(ctx, s.breaker, func(ctx context.Context) ([]pricing.Tier, error) {
		return s.repo.ListPriceTiers(ctx, variantID)
	})
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, tiersKey(variantID), tiers)
	return tiers, nil
}

// GetVariantPrice returns the variant's current base price.
func (s *Service) GetVariantPrice(ctx context.Context, variantID uuid.UUID) (int64, error) {
	info, err := s.variant(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return info.Price, nil
}

// GetVariantProduct returns the product the variant belongs to.
func (s *Service) GetVariantProduct(ctx context.Context, variantID uuid.UUID) (uuid.UUID, error) {
	info, err := s.variant(ctx, variantID)
	if err != nil {
		return uuid.Nil, err
	}
	return info.ProductID, nil
}

func (s *Service) variant(ctx context.Context, variantID uuid.UUID) (VariantInfo, error) {
	var info VariantInfo
	if hit, err := s.cache.GetJSON(ctx, variantKey(variantID), &info); err == nil && hit {
		return info, nil
	}
	info, err := fetch(ctx, s.breaker, func(ctx context.Context) (VariantInfo, error) {
		return s.repo.GetVariant(ctx, variantID)
	})
	if err != nil {
		return VariantInfo{}, err
	}
	_ = s.cache.SetJSON(ctx, variantKey(variantID), info)
	return info, nil
}

func countTierCache(outcome string) {
	if obs.TierCacheTotal != nil {
		obs.TierCacheTotal.WithLabelValues(outcome).Inc()
	}
}

// fetch runs fn behind the breaker. A not-found outcome does not count as a
// dependency failure; it is a correct answer from a healthy database.
func fetch[T any](ctx context.Context, b *resilience.Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if b != nil && !b.Allow(ctx) {
		return zero, resilience.ErrOpenCircuit
	}
	out, err := fn(ctx)
	if b != nil {
		b.Report(ctx, err == nil || errors.Is(err, ErrVariantNotFound))
	}
	if err != nil {
		return zero, err
	}
	return out, nil
}
