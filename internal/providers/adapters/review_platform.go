package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/axp-project/trust-engine/internal/evidence"
	"github.com/axp-project/trust-engine/internal/infrastructure/httpclient"
	"github.com/axp-project/trust-engine/internal/providers/guards"
)

// ReviewPlatformAdapter fetches high-churn brand review aggregates from a
// Trustpilot-shaped source. It is brand-only: product-level review
// breakdowns are not published by this class of provider.
type ReviewPlatformAdapter struct {
	guard      *guards.ProviderGuard
	baseURL    string
	httpClient *httpclient.ClientPool
}

// NewReviewPlatformAdapter builds an adapter guarded per config; TTLSeconds
// defaults to the 24h brand TTL if unset.
func NewReviewPlatformAdapter(baseURL string, config guards.ProviderConfig) *ReviewPlatformAdapter {
	if config.Name == "" {
		config.Name = "review_platform"
	}
	if config.TTLSeconds == 0 {
		config.TTLSeconds = 24 * 3600
	}
	return &ReviewPlatformAdapter{
		guard:   guards.NewProviderGuard(config),
		baseURL: baseURL,
		httpClient: httpclient.NewClientPool(httpclient.ClientConfig{
			MaxConcurrency: 8,
			RequestTimeout: 10 * time.Second,
			MaxRetries:     2,
			BackoffBase:    200 * time.Millisecond,
			BackoffMax:     2 * time.Second,
			UserAgent:      "axp-trust-engine/0.1",
		}),
	}
}

func (a *ReviewPlatformAdapter) Name() string { return "review_platform" }

func (a *ReviewPlatformAdapter) SupportsProductScope() bool { return false }

// FetchBrand retrieves the aggregate rating/breakdown for a brand domain.
func (a *ReviewPlatformAdapter) FetchBrand(ctx context.Context, domain string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/v1/business-units/lookup?domain=%s", domain)
	req := guards.GuardedRequest{
		Method:   "GET",
		URL:      a.baseURL + path,
		Headers:  map[string]string{"Accept": "application/json"},
		CacheKey: a.guard.Cache().GenerateCacheKey("GET", path, nil, nil),
	}

	resp, err := a.guard.Execute(ctx, req, a.httpFetcher)
	if err != nil {
		return evidence.Evidence{}, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return evidence.Evidence{}, fmt.Errorf("review_platform: decode brand response: %w", err)
	}

	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityBrand,
		SourceID:    fmt.Sprintf("%s:brand:%s", a.Name(), domain),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://www.trustpilot.com/review/%s", domain),
		Data:        data,
		TTLHours:    24,
	}, nil
}

// FetchProduct is unsupported: this provider has no product scope.
func (a *ReviewPlatformAdapter) FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error) {
	return evidence.Evidence{}, ErrUnsupported
}

func (a *ReviewPlatformAdapter) httpFetcher(ctx context.Context, req guards.GuardedRequest) (*guards.GuardedResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("review_platform: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("review_platform: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("review_platform: read body: %w", err)
	}

	return &guards.GuardedResponse{Data: body, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
}

// Health exposes the underlying guard's provider health snapshot.
func (a *ReviewPlatformAdapter) Health() guards.ProviderHealth { return a.guard.Health() }
