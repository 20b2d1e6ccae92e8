package runtime

import (
	"testing"
	"time"
)

func TestCacheManagerHitAfterSet(t *testing.T) {
	cm := NewCacheManager("review_platform")
	cm.Set("brand:acme", []byte(`{"ok":true}`), TierWarm)

	data, ok := cm.Get("brand:acme")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestCacheManagerUnknownProviderGetsDefault(t *testing.T) {
	cm := NewCacheManager("not_a_real_provider")
	if cm.config.MaxSize != 1000 {
		t.Errorf("expected fallback default config, got MaxSize=%d", cm.config.MaxSize)
	}
}

func TestCacheManagerDegradedExtendsTTL(t *testing.T) {
	cm := NewCacheManager("tech_stack")
	cm.SetDegraded(true)
	cm.Set("brand:acme", []byte("x"), TierHot)

	stats := cm.Stats()
	if stats["degraded"] != true {
		t.Errorf("expected degraded=true in stats, got %v", stats["degraded"])
	}
	if ttl := time.Until(cm.entries["brand:acme"].ExpiresAt); ttl <= cm.config.HotCacheTTL {
		t.Errorf("expected degraded TTL beyond the hot-tier TTL %v, got %v", cm.config.HotCacheTTL, ttl)
	}
}

func TestBuildKeyUsesPrefixMap(t *testing.T) {
	cm := NewCacheManager("aggregated_ratings")
	key := cm.BuildKey("brand_rating", "acme")
	if key != "aggregated_ratings:brand:acme" {
		t.Errorf("unexpected key: %s", key)
	}
}
