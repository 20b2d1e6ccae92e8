package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axp-project/trust-engine/internal/evidence"
	"github.com/axp-project/trust-engine/internal/providers/guards"
)

// TestAggregatedRatingsAdapter_Golden pins the request path and response
// shape a seller-ratings rollup fetch produces, the way the provider golden
// fixtures in the upstream fetcher tests pin request/response pairs.
func TestAggregatedRatingsAdapter_Golden(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"avg_rating":    4.3,
			"count_total":   5821,
			"verified_pct":  0.82,
		})
	}))
	defer srv.Close()

	a := NewAggregatedRatingsAdapter(srv.URL, guards.ProviderConfig{Name: "aggregated_ratings"})
	ev, err := a.FetchProduct(context.Background(), "sku-9001")
	require.NoError(t, err)

	assert.Equal(t, "/shopping/product?id=sku-9001", gotPath)
	assert.Equal(t, evidence.EntityProduct, ev.Entity)
	assert.Equal(t, "aggregated_ratings", ev.Source)
	assert.EqualValues(t, 24, ev.TTLHours)
	assert.Equal(t, 4.3, ev.Data["avg_rating"])
	assert.Greater(t, ev.Data["count_total"].(float64), 0.0)
}

// TestCertificationShopAdapter_Golden exercises the brand-scoped
// certification path end to end against a fake shop endpoint.
func TestCertificationShopAdapter_Golden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/public/v2/shops/demo-shop", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"certificate_id": "TS-44120",
			"status":         "active",
			"guarantee_eur":  2500,
		})
	}))
	defer srv.Close()

	a := NewCertificationShopAdapter(srv.URL, guards.ProviderConfig{Name: "certification_shop"})
	ev, err := a.FetchBrand(context.Background(), "demo-shop")
	require.NoError(t, err)

	require.Contains(t, ev.Data, "certificate_id")
	assert.Equal(t, "TS-44120", ev.Data["certificate_id"])
	assert.Equal(t, "active", ev.Data["status"])
	assert.EqualValues(t, 168, ev.TTLHours)
}
