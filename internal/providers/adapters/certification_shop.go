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

// CertificationShopAdapter fetches a shop-certification and review provider
// (the Trusted Shops-shaped source) that publishes both brand-level
// certification/guarantee data and product-level review aggregates.
type CertificationShopAdapter struct {
	guard      *guards.ProviderGuard
	baseURL    string
	httpClient *httpclient.ClientPool
}

func NewCertificationShopAdapter(baseURL string, config guards.ProviderConfig) *CertificationShopAdapter {
	if config.Name == "" {
		config.Name = "certification_shop"
	}
	if config.TTLSeconds == 0 {
		config.TTLSeconds = 168 * 3600
	}
	return &CertificationShopAdapter{
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

func (a *CertificationShopAdapter) Name() string { return "certification_shop" }

func (a *CertificationShopAdapter) SupportsProductScope() bool { return true }

func (a *CertificationShopAdapter) FetchBrand(ctx context.Context, shopID string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/rest/public/v2/shops/%s", shopID)
	data, err := a.fetchJSON(ctx, path)
	if err != nil {
		return evidence.Evidence{}, err
	}
	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityBrand,
		SourceID:    fmt.Sprintf("%s:brand:%s", a.Name(), shopID),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://www.trustedshops.com/shops/%s", shopID),
		Data:        data,
		TTLHours:    168,
	}, nil
}

func (a *CertificationShopAdapter) FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/rest/public/v2/products/%s/reviews", productID)
	data, err := a.fetchJSON(ctx, path)
	if err != nil {
		return evidence.Evidence{}, err
	}
	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityProduct,
		SourceID:    fmt.Sprintf("%s:product:%s", a.Name(), productID),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://www.trustedshops.com/product/%s", productID),
		Data:        data,
		TTLHours:    168,
	}, nil
}

func (a *CertificationShopAdapter) fetchJSON(ctx context.Context, path string) (map[string]interface{}, error) {
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
		return nil, fmt.Errorf("certification_shop: decode response: %w", err)
	}
	return data, nil
}

func (a *CertificationShopAdapter) httpFetcher(ctx context.Context, req guards.GuardedRequest) (*guards.GuardedResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("certification_shop: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := a.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("certification_shop: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("certification_shop: read body: %w", err)
	}
	return &guards.GuardedResponse{Data: body, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
}

func (a *CertificationShopAdapter) Health() guards.ProviderHealth { return a.guard.Health() }
