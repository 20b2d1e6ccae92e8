package guards

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

// TestIntegration_429ErrorStream simulates a burst of rate-limit responses
// from a review_platform-shaped provider followed by recovery.
func TestIntegration_429ErrorStream(t *testing.T) {
	config := ProviderConfig{
		Name:            "review_platform",
		TTLSeconds:      60,
		BurstLimit:      5,
		SustainedRate:   2.0,
		MaxRetries:      7,  // five 429s and two 500s precede the first 200
		BackoffBaseMs:   50, // fast for testing
		FailureThresh:   0.6,
		WindowRequests:  3,
		ProbeInterval:   1, // 1 second for fast testing
		EnableFileCache: true,
		CachePath:       filepath.Join(t.TempDir(), "review_platform.json"),
	}

	guard := NewProviderGuard(config)

	callCount := 0
	req := GuardedRequest{
		Method:   "GET",
		URL:      "https://api.trustpilot.com/v1/business-units/acme-boots",
		CacheKey: "brand:acme-boots:review_platform",
	}

	fetcher := func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		callCount++

		switch {
		case callCount <= 5:
			return &GuardedResponse{
				StatusCode: 429,
				Headers:    http.Header{"Retry-After": []string{"2"}},
			}, nil
		case callCount <= 7:
			return &GuardedResponse{
				StatusCode: 500,
			}, nil
		default:
			return &GuardedResponse{
				Data:       []byte(`{"rating": 4.6}`),
				StatusCode: 200,
				Headers:    make(http.Header),
			}, nil
		}
	}

	resp, err := guard.Execute(context.Background(), req, fetcher)
	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected status 200, got: %d", resp.StatusCode)
	}

	metrics := guard.telemetry.GetMetrics()
	if metrics.Failures == 0 {
		t.Error("expected failure count > 0")
	}

	if metrics.Successes == 0 {
		t.Error("expected success count > 0")
	}
}

// TestIntegration_CircuitBreakerCycle drives a certification_shop-shaped
// guard through open, blocked, half-open-probe, and closed states.
func TestIntegration_CircuitBreakerCycle(t *testing.T) {
	config := ProviderConfig{
		Name:           "certification_shop",
		TTLSeconds:     60,
		BurstLimit:     10,
		SustainedRate:  5.0,
		MaxRetries:     1,
		BackoffBaseMs:  10,  // very fast for testing
		FailureThresh:  0.5, // 50% failure rate
		WindowRequests: 4,   // small window for fast testing
		ProbeInterval:  1,   // 1 second probe interval
	}

	guard := NewProviderGuard(config)

	req := GuardedRequest{
		Method:   "GET",
		URL:      "https://api.trustedshops.com/v1/certificates/acme-boots",
		CacheKey: "brand:acme-boots:certification_shop",
	}

	failureFetcher := func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		return &GuardedResponse{StatusCode: 500}, nil
	}

	for i := 0; i < 5; i++ {
		guard.Execute(context.Background(), req, failureFetcher)
	}

	if !guard.circuit.IsOpen() {
		t.Error("circuit should be open after failures")
	}

	_, err := guard.Execute(context.Background(), req, func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		t.Fatal("fetcher should not be called when circuit is open")
		return nil, nil
	})

	if err == nil {
		t.Fatal("expected circuit breaker error")
	}

	time.Sleep(2 * time.Second) // wait for probe interval

	successFetcher := func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		return &GuardedResponse{
			Data:       []byte(`{"certified": true}`),
			StatusCode: 200,
			Headers:    make(http.Header),
		}, nil
	}

	resp, err := guard.Execute(context.Background(), req, successFetcher)
	if err != nil {
		t.Fatalf("expected success in half-open state, got: %v", err)
	}

	if string(resp.Data) != `{"certified": true}` {
		t.Errorf("expected recovery data, got: %s", string(resp.Data))
	}

	if guard.circuit.IsOpen() {
		t.Error("circuit should be closed after successful probe")
	}
}

// TestIntegration_FileCachePersistence confirms a tech_stack-shaped guard's
// file-backed cache survives across guard instances (a CLI re-invocation).
func TestIntegration_FileCachePersistence(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "tech_stack.json")

	config := ProviderConfig{
		Name:            "tech_stack",
		TTLSeconds:      300,
		BurstLimit:      10,
		SustainedRate:   5.0,
		MaxRetries:      2,
		BackoffBaseMs:   100,
		EnableFileCache: true,
		CachePath:       cachePath,
	}

	guard1 := NewProviderGuard(config)

	req := GuardedRequest{
		Method:   "GET",
		URL:      "https://api.builtwith.com/v21/api.json?lookup=acme-boots.com",
		CacheKey: "brand:acme-boots:tech_stack",
	}

	fetcher := func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		return &GuardedResponse{
			Data:       []byte(`{"technologies": ["shopify", "klaviyo"]}`),
			StatusCode: 200,
			Headers:    make(http.Header),
		}, nil
	}

	resp1, err := guard1.Execute(context.Background(), req, fetcher)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	if resp1.Cached {
		t.Error("first response should not be cached")
	}

	time.Sleep(100 * time.Millisecond) // wait for file cache write

	// New guard instance simulates a fresh CLI invocation warm-starting
	// from the previous run's cache file.
	guard2 := NewProviderGuard(config)

	resp2, err := guard2.Execute(context.Background(), req, func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		t.Fatal("fetcher should not be called - data should be loaded from file cache")
		return nil, nil
	})

	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if !resp2.Cached {
		t.Error("second response should be cached (loaded from file)")
	}

	if string(resp2.Data) != `{"technologies": ["shopify", "klaviyo"]}` {
		t.Errorf("expected cached data, got: %s", string(resp2.Data))
	}
}

// TestIntegration_ConditionalHeaders confirms a revalidation round trip: the
// guard attaches If-None-Match/If-Modified-Since from a prior response and
// accepts a 304 in place of a full aggregated_ratings payload.
func TestIntegration_ConditionalHeaders(t *testing.T) {
	config := ProviderConfig{
		Name:          "aggregated_ratings",
		TTLSeconds:    300,
		BurstLimit:    10,
		SustainedRate: 5.0,
		MaxRetries:    2,
		BackoffBaseMs: 100,
	}

	guard := NewProviderGuard(config)

	req := GuardedRequest{
		Method:   "GET",
		URL:      "https://www.googleapis.com/shoppingcontent/v2/products/acme-boots-1",
		Headers:  make(map[string]string),
		CacheKey: "product:acme-boots-1:aggregated_ratings",
	}

	firstCall := true
	fetcher := func(ctx context.Context, req GuardedRequest) (*GuardedResponse, error) {
		headers := make(http.Header)

		if firstCall {
			firstCall = false
			headers.Set("ETag", `"abc123"`)
			headers.Set("Last-Modified", "Wed, 07 Sep 2023 14:00:00 GMT")
			return &GuardedResponse{
				Data:       []byte(`{"review_count": 1}`),
				StatusCode: 200,
				Headers:    headers,
			}, nil
		}

		if req.Headers["If-None-Match"] != `"abc123"` {
			t.Errorf("expected If-None-Match header with ETag, got: %v", req.Headers)
		}

		if req.Headers["If-Modified-Since"] != "Wed, 07 Sep 2023 14:00:00 GMT" {
			t.Errorf("expected If-Modified-Since header, got: %v", req.Headers)
		}

		return &GuardedResponse{
			StatusCode: 304,
			Headers:    headers,
		}, nil
	}

	resp1, err := guard.Execute(context.Background(), req, fetcher)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	if resp1.StatusCode != 200 {
		t.Errorf("expected status 200, got: %d", resp1.StatusCode)
	}

	time.Sleep(100 * time.Millisecond)

	// Manually clear the cache so the next Execute call treats this as a
	// revalidation rather than a straight cache hit.
	guard.cache.Clear()

	req.Headers = make(map[string]string)
	resp2, err := guard.Execute(context.Background(), req, fetcher)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if resp2.StatusCode != 304 {
		t.Errorf("expected status 304, got: %d", resp2.StatusCode)
	}
}
