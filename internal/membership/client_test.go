package membership

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/harga-api/internal/resilience"
)

func newClient(baseURL string) *Client {
	return &Client{
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Timeout: time.Second},
			MaxAttempts: 1,
		},
		BaseURL: baseURL,
	}
}

func TestTierDiscount(t *testing.T) {
	customer := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/members/"+customer.String()+"/tier", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tierSlug":"gold","discountBps":500}`))
	}))
	defer srv.Close()

	slug, bps, err := newClient(srv.URL).TierDiscount(context.Background(), customer)
	require.NoError(t, err)
	require.Equal(t, "gold", slug)
	require.Equal(t, int32(500), bps)
}

func TestTierDiscountUnknownMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	slug, bps, err := newClient(srv.URL).TierDiscount(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, slug)
	require.Zero(t, bps)
}

func TestTierDiscountUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL).TierDiscount(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTierDiscountUnconfigured(t *testing.T) {
	var c *Client
	_, _, err := c.TierDiscount(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUnavailable)
}
