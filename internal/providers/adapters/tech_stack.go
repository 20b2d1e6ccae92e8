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

// TechStackAdapter fetches a domain's detected technology fingerprint (the
// BuiltWith-shaped source). Brand-only: technology detection has no
// per-product scope.
type TechStackAdapter struct {
	guard      *guards.ProviderGuard
	baseURL    string
	httpClient *httpclient.ClientPool
}

func NewTechStackAdapter(baseURL string, config guards.ProviderConfig) *TechStackAdapter {
	if config.Name == "" {
		config.Name = "tech_stack"
	}
	if config.TTLSeconds == 0 {
		config.TTLSeconds = 720 * 3600
	}
	return &TechStackAdapter{
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

func (a *TechStackAdapter) Name() string { return "tech_stack" }

func (a *TechStackAdapter) SupportsProductScope() bool { return false }

func (a *TechStackAdapter) FetchBrand(ctx context.Context, domain string) (evidence.Evidence, error) {
	path := fmt.Sprintf("/v20/api.json?lookup=%s", domain)
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
		return evidence.Evidence{}, fmt.Errorf("tech_stack: decode response: %w", err)
	}
	return evidence.Evidence{
		Source:      a.Name(),
		Entity:      evidence.EntityBrand,
		SourceID:    fmt.Sprintf("%s:brand:%s", a.Name(), domain),
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: fmt.Sprintf("https://builtwith.com/%s", domain),
		Data:        data,
		TTLHours:    720,
	}, nil
}

func (a *TechStackAdapter) FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error) {
	return evidence.Evidence{}, ErrUnsupported
}

func (a *TechStackAdapter) httpFetcher(ctx context.Context, req guards.GuardedRequest) (*guards.GuardedResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("tech_stack: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := a.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("tech_stack: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tech_stack: read body: %w", err)
	}
	return &guards.GuardedResponse{Data: body, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
}

func (a *TechStackAdapter) Health() guards.ProviderHealth { return a.guard.Health() }
