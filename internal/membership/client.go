package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/harga-api/internal/resilience"
)

// ErrUnavailable wraps transport failures so callers can treat the
// membership system as a degradable dependency.
var ErrUnavailable = errors.New("membership: service unavailable")

// Client reads loyalty tier data from the membership service over HTTP.
// Retries, timeouts and the circuit breaker come from the wrapped client.
type Client struct {
	HTTP    *resilience.HTTPClient
	BaseURL string
	APIKey  string
}

type tierResponse struct {
	TierSlug    string `json:"tierSlug"`
	DiscountBps int32  `json:"discountBps"`
}

// TierDiscount returns the customer's tier slug and discount in basis
// points. A customer without a discounted tier yields an empty slug and
// zero bps, which is a success.
func (c *Client) TierDiscount(ctx context.Context, customerID uuid.UUID) (string, int32, error) {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return "", 0, fmt.Errorf("%w: client not configured", ErrUnavailable)
	}
	url := fmt.Sprintf("%s/v1/members/%s/tier", strings.TrimRight(c.BaseURL, "/"), customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Unknown member carries no tier discount.
		return "", 0, nil
	default:
		return "", 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body tierResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if body.DiscountBps < 0 {
		body.DiscountBps = 0
	}
	return body.TierSlug, body.DiscountBps, nil
}
