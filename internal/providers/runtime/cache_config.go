// Package runtime wires together the per-provider runtime configuration
// (cache tiers, degradation behavior) that sits above the guard package's
// generic resilience primitives.
package runtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig defines provider-specific cache tier TTLs. Hot/warm/cold map
// onto how volatile each provider's underlying data is: review aggregates
// churn faster than a brand's tech-stack fingerprint.
type CacheConfig struct {
	Provider string
	HotCacheTTL time.Duration
	WarmCacheTTL time.Duration
	ColdCacheTTL time.Duration
	MaxSize int
	PrefixMap map[string]string
	DegradedTTL time.Duration // extended TTL while the provider's circuit is degraded
}

// CacheConfigs holds the default tier configuration for each AXP provider,
// keyed by provider name. These mirror the brand/product TTLs an adapter
// stamps onto its Evidence but govern the guard-level HTTP response
// cache, a distinct concern from the Evidence cache in internal/cache.
var CacheConfigs = map[string]CacheConfig{
	"review_platform": {
		Provider: "review_platform",
		HotCacheTTL: time.Minute * 10,
		WarmCacheTTL: time.Hour,
		ColdCacheTTL: time.Hour * 24,
		MaxSize: 2000,
		DegradedTTL: time.Hour * 2,
		PrefixMap: map[string]string{
			"brand_reviews": "review_platform:brand:",
		},
	},
	"certification_shop": {
		Provider: "certification_shop",
		HotCacheTTL: time.Hour,
		WarmCacheTTL: time.Hour * 24,
		ColdCacheTTL: time.Hour * 168,
		MaxSize: 5000,
		DegradedTTL: time.Hour * 12,
		PrefixMap: map[string]string{
			"brand_cert": "certification_shop:brand:",
			"product_cert": "certification_shop:product:",
		},
	},
	"aggregated_ratings": {
		Provider: "aggregated_ratings",
		HotCacheTTL: time.Minute * 15,
		WarmCacheTTL: time.Hour * 4,
		ColdCacheTTL: time.Hour * 24,
		MaxSize: 5000,
		DegradedTTL: time.Hour * 2,
		PrefixMap: map[string]string{
			"brand_rating": "aggregated_ratings:brand:",
			"product_rating": "aggregated_ratings:product:",
		},
	},
	"tech_stack": {
		Provider: "tech_stack",
		HotCacheTTL: time.Hour * 6,
		WarmCacheTTL: time.Hour * 24,
		ColdCacheTTL: time.Hour * 720,
		MaxSize: 1000,
		DegradedTTL: time.Hour * 48,
		PrefixMap: map[string]string{
			"brand_stack": "tech_stack:brand:",
		},
	},
}

// CacheTier selects which TTL bucket a cache entry belongs to.
type CacheTier int

const (
	TierHot CacheTier = iota
	TierWarm
	TierCold
)

func (t CacheTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

type cacheEntry struct {
	Data []byte
	ExpiresAt time.Time
	Tier CacheTier
}

// CacheManager manages one provider's tiered HTTP-response cache, extending
// TTLs automatically while the provider is marked degraded (e.g. its
// circuit breaker is open or half-open).
type CacheManager struct {
	mu sync.RWMutex
	config CacheConfig
	degraded bool
	cacheHits int64
	cacheMiss int64
	entries map[string]cacheEntry
}

// NewCacheManager builds a manager for the given provider, falling back to
// a conservative default configuration for unknown provider names.
func NewCacheManager(provider string) *CacheManager {
	config, ok := CacheConfigs[provider]
	if !ok {
		log.Warn().Str("provider", provider).Msg("unknown provider, using default cache config")
		config = CacheConfig{
			Provider: provider,
			HotCacheTTL: time.Minute,
			WarmCacheTTL: time.Minute * 5,
			ColdCacheTTL: time.Hour * 6,
			MaxSize: 1000,
			DegradedTTL: time.Minute * 10,
			PrefixMap: map[string]string{"default": provider + ":default:"},
		}
	}
	return &CacheManager{config: config, entries: make(map[string]cacheEntry)}
}

// Get retrieves an entry, treating expired entries as misses.
func (cm *CacheManager) Get(key string) ([]byte, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	entry, ok := cm.entries[key]
	if !ok {
		cm.cacheMiss++
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		cm.cacheMiss++
		delete(cm.entries, key)
		return nil, false
	}
	cm.cacheHits++
	return entry.Data, true
}

// Set stores data under key at the given tier, honoring degraded-mode TTL
// extension when active.
func (cm *CacheManager) Set(key string, data []byte, tier CacheTier) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if len(cm.entries) >= cm.config.MaxSize {
		cm.evictOldestLocked()
	}

	var ttl time.Duration
	switch tier {
	case TierHot:
		ttl = cm.config.HotCacheTTL
	case TierWarm:
		ttl = cm.config.WarmCacheTTL
	case TierCold:
		ttl = cm.config.ColdCacheTTL
	}
	if cm.degraded {
		ttl = cm.config.DegradedTTL
	}

	cm.entries[key] = cacheEntry{Data: data, ExpiresAt: time.Now().Add(ttl), Tier: tier}
}

// SetDegraded toggles degraded mode, logging the transition.
func (cm *CacheManager) SetDegraded(degraded bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.degraded == degraded {
		return
	}
	cm.degraded = degraded
	log.Info().Str("provider", cm.config.Provider).Bool("degraded", degraded).Msg("cache degradation mode changed")
}

// BuildKey applies the provider's prefix map to construct a namespaced key.
func (cm *CacheManager) BuildKey(keyType, identifier string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	prefix, ok := cm.config.PrefixMap[keyType]
	if !ok {
		prefix = cm.config.Provider + ":default:"
	}
	return prefix + identifier
}

// Stats reports hit rate and entry counts for observability.
func (cm *CacheManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := cm.cacheHits + cm.cacheMiss
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(cm.cacheHits) / float64(total)
	}
	return map[string]interface{}{
		"provider": cm.config.Provider,
		"degraded": cm.degraded,
		"entries": len(cm.entries),
		"cache_hits": cm.cacheHits,
		"cache_miss": cm.cacheMiss,
		"hit_rate": hitRate,
	}
}

func (cm *CacheManager) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	now := time.Now()
	for key, entry := range cm.entries {
		if now.After(entry.ExpiresAt) {
			delete(cm.entries, key)
			return
		}
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) {
			oldestKey, oldestTime = key, entry.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(cm.entries, oldestKey)
	}
}
