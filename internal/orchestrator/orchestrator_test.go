package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/axp-project/trust-engine/internal/cache"
	"github.com/axp-project/trust-engine/internal/evidence"
)

// stubAdapter is a deterministic in-memory Adapter for orchestrator tests.
type stubAdapter struct {
	name          string
	brandData     map[string]interface{}
	supportsProd  bool
	calls         int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) SupportsProductScope() bool { return s.supportsProd }

func (s *stubAdapter) FetchBrand(ctx context.Context, domain string) (evidence.Evidence, error) {
	s.calls++
	return evidence.Evidence{
		Source:      s.name,
		Entity:      evidence.EntityBrand,
		SourceID:    s.name + ":brand:" + domain,
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: "https://example.test/" + domain,
		Data:        cloneMap(s.brandData),
		TTLHours:    24,
	}, nil
}

func (s *stubAdapter) FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error) {
	if !s.supportsProd {
		return evidence.Evidence{}, errUnsupportedStub
	}
	s.calls++
	return evidence.Evidence{
		Source:      s.name,
		Entity:      evidence.EntityProduct,
		SourceID:    s.name + ":product:" + productID,
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: "https://example.test/product/" + productID,
		Data:        cloneMap(s.brandData),
		TTLHours:    24,
	}, nil
}

var errUnsupportedStub = &stubErr{"unsupported"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func TestEnrichBrandFanOutAllProviders(t *testing.T) {
	store := cache.New(5)
	o := New(store)
	o.Register(&stubAdapter{name: "p1", brandData: map[string]interface{}{"avg_rating": 4.5}})
	o.Register(&stubAdapter{name: "p2", brandData: map[string]interface{}{"avg_rating": 4.2}})

	results := o.EnrichBrand(context.Background(), "demo.shop", nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for name, r := range results {
		if r.Err != nil {
			t.Errorf("provider %s returned error: %v", name, r.Err)
		}
	}
}

func TestEnrichBrandUsesCacheOnSecondCall(t *testing.T) {
	store := cache.New(5)
	o := New(store)
	stub := &stubAdapter{name: "p1", brandData: map[string]interface{}{"avg_rating": 4.5}}
	o.Register(stub)

	o.EnrichBrand(context.Background(), "demo.shop", nil)
	o.EnrichBrand(context.Background(), "demo.shop", nil)

	if stub.calls != 1 {
		t.Errorf("expected adapter fetched once (cache hit on 2nd), got %d calls", stub.calls)
	}
}

func TestEnrichProductDefaultsToProductScopedProviders(t *testing.T) {
	store := cache.New(5)
	o := New(store)
	o.Register(&stubAdapter{name: "brandonly", brandData: map[string]interface{}{}, supportsProd: false})
	o.Register(&stubAdapter{name: "both", brandData: map[string]interface{}{}, supportsProd: true})

	results := o.EnrichProduct(context.Background(), "prod-1", nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result (product-scoped only), got %d", len(results))
	}
	if _, ok := results["both"]; !ok {
		t.Errorf("expected 'both' provider in results, got %v", results)
	}
}

func TestDetectAnomalyRatingJump(t *testing.T) {
	history := []map[string]interface{}{
		{"avg_rating": 3.0, "count_total": 100.0},
	}
	data := map[string]interface{}{"avg_rating": 4.8, "count_total": 105.0}
	if !detectAnomaly(data, history) {
		t.Error("expected rating jump > 1.5 to be flagged as anomaly")
	}
}

func TestDetectAnomalyCountGrowth(t *testing.T) {
	history := []map[string]interface{}{
		{"avg_rating": 4.0, "count_total": 50.0},
	}
	data := map[string]interface{}{"avg_rating": 4.1, "count_total": 600.0}
	if !detectAnomaly(data, history) {
		t.Error("expected >10x count growth to be flagged as anomaly")
	}
}

func TestDetectAnomalyNoHistoryIsNeverAnomalous(t *testing.T) {
	data := map[string]interface{}{"avg_rating": 4.9, "count_total": 999999.0}
	if detectAnomaly(data, nil) {
		t.Error("expected no anomaly when there is no prior history")
	}
}

func TestDetectAnomalyStableDataIsNotAnomalous(t *testing.T) {
	history := []map[string]interface{}{
		{"avg_rating": 4.3, "count_total": 1000.0},
	}
	data := map[string]interface{}{"avg_rating": 4.4, "count_total": 1020.0}
	if detectAnomaly(data, history) {
		t.Error("expected stable data not to be flagged as anomaly")
	}
}

func TestIssueVCFromOrchestrator(t *testing.T) {
	store := cache.New(5)
	o := New(store)
	ev := evidence.Evidence{
		Source:      "p1",
		Entity:      evidence.EntityBrand,
		SourceID:    "p1:brand:demo.shop",
		RetrievedAt: time.Now().UTC(),
		EvidenceURL: "https://example.test",
		Data:        map[string]interface{}{"avg_rating": 4.5},
		TTLHours:    24,
	}
	vc, err := o.IssueVC(ev, "did:axp:engine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vc.CredentialSubject.EvidenceHash == "" {
		t.Error("expected non-empty evidence hash")
	}
}
