package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harga-api/internal/pricing"
	"github.com/noah-isme/harga-api/internal/resilience"
)

type stubRepo struct {
	tiers    map[uuid.UUID][]pricing.Tier
	variants map[uuid.UUID]VariantInfo
	calls    int
	err      error
}

func (r *stubRepo) ListPriceTiers(_ context.Context, variantID uuid.UUID) ([]pricing.Tier, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.tiers[variantID], nil
}

func (r *stubRepo) GetVariant(_ context.Context, variantID uuid.UUID) (VariantInfo, error) {
	r.calls++
	if r.err != nil {
		return VariantInfo{}, r.err
	}
	info, ok := r.variants[variantID]
	if !ok {
		return VariantInfo{}, ErrVariantNotFound
	}
	return info, nil
}

func newTestService(t *testing.T, repo *stubRepo) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(ServiceConfig{
		Repo:  repo,
		Cache: NewCache(client, time.Minute),
	})
	require.NoError(t, err)
	return svc, mr
}

func TestListPriceTiersCacheAside(t *testing.T) {
	variant := uuid.New()
	repo := &stubRepo{tiers: map[uuid.UUID][]pricing.Tier{
		variant: {{Slug: "base", MinQty: 1, Amount: 1000}, {Slug: "bulk-10", MinQty: 10, Amount: 800}},
	}}
	svc, _ := newTestService(t, repo)

	tiers, err := svc.ListPriceTiers(context.Background(), variant)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	require.Equal(t, 1, repo.calls)

	// Second read is served from Redis.
	tiers, err = svc.ListPriceTiers(context.Background(), variant)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	require.Equal(t, 1, repo.calls)
}

func TestListPriceTiersCacheExpiry(t *testing.T) {
	variant := uuid.New()
	repo := &stubRepo{tiers: map[uuid.UUID][]pricing.Tier{
		variant: {{Slug: "base", MinQty: 1, Amount: 1000}},
	}}
	svc, mr := newTestService(t, repo)

	_, err := svc.ListPriceTiers(context.Background(), variant)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = svc.ListPriceTiers(context.Background(), variant)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestVariantLookupsShareCacheEntry(t *testing.T) {
	variant := uuid.New()
	product := uuid.New()
	repo := &stubRepo{variants: map[uuid.UUID]VariantInfo{
		variant: {ProductID: product, Price: 1500},
	}}
	svc, _ := newTestService(t, repo)

	price, err := svc.GetVariantPrice(context.Background(), variant)
	require.NoError(t, err)
	require.Equal(t, int64(1500), price)

	got, err := svc.GetVariantProduct(context.Background(), variant)
	require.NoError(t, err)
	require.Equal(t, product, got)
	require.Equal(t, 1, repo.calls)
}

func TestBreakerOpensOnRepeatedFailure(t *testing.T) {
	variant := uuid.New()
	repo := &stubRepo{err: errors.New("db down")}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(ServiceConfig{
		Repo:    repo,
		Cache:   NewCache(client, time.Minute),
		Breaker: resilience.NewBreaker(2, 0.5, time.Minute),
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.ListPriceTiers(ctx, variant)
		require.Error(t, err)
	}
	_, err = svc.ListPriceTiers(ctx, variant)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, repo.calls)
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	repo := &stubRepo{variants: map[uuid.UUID]VariantInfo{}}
	svc, err := NewService(ServiceConfig{
		Repo:    repo,
		Breaker: resilience.NewBreaker(2, 0.5, time.Minute),
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.GetVariantPrice(ctx, uuid.New())
		require.ErrorIs(t, err, ErrVariantNotFound)
	}
	// The breaker stays closed: lookups still reach the repo.
	_, err = svc.GetVariantPrice(ctx, uuid.New())
	require.ErrorIs(t, err, ErrVariantNotFound)
	require.Equal(t, 6, repo.calls)
}
