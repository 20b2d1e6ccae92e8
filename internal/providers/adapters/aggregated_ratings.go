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

// AggregatedRatingsAdapter fetches cross-source seller-rating rollups (the
// Google Seller Ratings-shaped source), supporting both brand and product
// scope.
type AggregatedRatingsAdapter struct {
	guard      *guards.ProviderGuard
	baseURL    string
	httpClient *httpclient.ClientPool
}

func NewAggregatedRatingsAdapter(baseURL string, config guards.ProviderConfig) *AggregatedRatingsAdapter {
	if config.Name == "" {
		config.Name = "aggregated_ratings"
	}
	if config.TTLSeconds == 0 {
		config.TTLSeconds = 24 * 3600
	}
	return &AggregatedRatingsAdapter{
		guard:      guards.NewProviderGuard(config),
		baseURL:    baseURL,
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

func (a *AggregatedRatingsAdapter) Name() string { return "aggregated_ratings" }

func (a *AggregatedRatingsAdapter) SupportsProductScope() bool { return true }

func (a *AggregatedRatingsAdapter) FetchBrand(ctx context.Context, merchantID string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/shopping/seller?id=%s", merchantID)
	data, err := a.fetchJSON(ctx, path)
	if err != nil {
		return evidence.Evidence{}, err
	}
	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityBrand,
		SourceID:    fmt.Sprintf("%s:brand:%s", a.Name(), merchantID),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://www.google.com/shopping/seller?id=%s", merchantID),
		Data:        data,
		TTLHours:    24,
	}, nil
}

func (a *AggregatedRatingsAdapter) FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/shopping/product?id=%s", productID)
	data, err := a.fetchJSON(ctx, path)
	if err != nil {
		return evidence.Evidence{}, err
	}
	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityProduct,
		SourceID:    fmt.Sprintf("%s:product:%s", a.Name(), productID),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://www.google.com/shopping/product/%s", productID),
		Data:        data,
		TTLHours:    24,
	}, nil
}

func (a *AggregatedRatingsAdapter) fetchJSON(ctx context.Context, path string) (map[string]interface{}, error) {
	req := guards.GuardedRequest{
		Method:   "GET",
		URL:      a.baseURL + path,
		Headers:  map[string]string{"Accept": "application/json"},
		CacheKey: a.guard.Cache().GenerateCacheKey("GET", path, nil, nil),
	}
	resp, err := a.guard.Execute(ctx, req, a.httpFetcher)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("aggregated_ratings: decode response: %w", err)
	}
	return data, nil
}

func (a *AggregatedRatingsAdapter) httpFetcher(ctx context.Context, req guards.GuardedRequest) (*guards.GuardedResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregated_ratings: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := a.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("aggregated_ratings: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("aggregated_ratings: read body: %w", err)
	}
	return &guards.GuardedResponse{Data: body, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
}

func (a *AggregatedRatingsAdapter) Health() guards.ProviderHealth { return a.guard.Health() }
