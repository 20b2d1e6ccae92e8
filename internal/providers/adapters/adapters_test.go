package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/axp-project/trust-engine/internal/providers/guards"
)

func TestReviewPlatformAdapter_FetchBrand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"avg_rating":4.6,"count_total":12873}`))
	}))
	defer srv.Close()

	a := NewReviewPlatformAdapter(srv.URL, guards.ProviderConfig{Name: "review_platform"})
	ev, err := a.FetchBrand(context.Background(), "demo.shop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.TTLHours != 24 {
		t.Errorf("expected brand TTL 24h, got %v", ev.TTLHours)
	}
	if ev.Data["avg_rating"] != 4.6 {
		t.Errorf("unexpected data: %v", ev.Data)
	}
}

func TestReviewPlatformAdapter_FetchProductUnsupported(t *testing.T) {
	a := NewReviewPlatformAdapter("http://unused", guards.ProviderConfig{Name: "review_platform"})
	_, err := a.FetchProduct(context.Background(), "p1")
	if err != ErrUnsupported {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestCertificationShopAdapter_SupportsBothScopes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	a := NewCertificationShopAdapter(srv.URL, guards.ProviderConfig{Name: "certification_shop"})
	if !a.SupportsProductScope() {
		t.Error("expected certification_shop to support product scope")
	}

	brandEv, err := a.FetchBrand(context.Background(), "shop1")
	if err != nil {
		t.Fatalf("fetch brand: %v", err)
	}
	if brandEv.TTLHours != 168 {
		t.Errorf("expected 168h TTL, got %v", brandEv.TTLHours)
	}

	productEv, err := a.FetchProduct(context.Background(), "prod1")
	if err != nil {
		t.Fatalf("fetch product: %v", err)
	}
	if productEv.TTLHours != 168 {
		t.Errorf("expected 168h TTL, got %v", productEv.TTLHours)
	}
}

func TestTechStackAdapter_BrandOnly(t *testing.T) {
	a := NewTechStackAdapter("http://unused", guards.ProviderConfig{Name: "tech_stack"})
	if a.SupportsProductScope() {
		t.Error("expected tech_stack to be brand-only")
	}
	_, err := a.FetchProduct(context.Background(), "p1")
	if err != ErrUnsupported {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
