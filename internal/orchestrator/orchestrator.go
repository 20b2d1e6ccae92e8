// Package orchestrator implements the multi-provider fan-out engine:
// per-provider TTL caching, freshness validation, anomaly-triggered TTL
// shortening, and verifiable-credential issuance. One goroutine per
// provider call, collected through a buffered channel —
// the same fan-out shape the pack's discovery orchestrators use — with
// golang.org/x/sync/singleflight coalescing duplicate concurrent requests
// for the same cache key.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/axp-project/trust-engine/internal/cache"
	"github.com/axp-project/trust-engine/internal/evidence"
	"github.com/axp-project/trust-engine/internal/providers/adapters"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 10 * time.Second

// anomaly thresholds.
const (
	ratingJumpThreshold = 1.5
	countGrowthFactor = 10.0
)

// Result is one provider's outcome for a single enrich call.
type Result struct {
	Evidence evidence.Evidence
	Err error
}

// Orchestrator owns the cache and the registered adapter set. It has an
// explicit lifecycle (New/Close) and is never process-global.
type Orchestrator struct {
	store cache.Store
	providers map[string]adapters.Adapter
	group singleflight.Group
}

// New constructs an Orchestrator bound to store (use cache.New(...) for the
// reference in-process implementation).
func New(store cache.Store) *Orchestrator {
	return &Orchestrator{
		store: store,
		providers: make(map[string]adapters.Adapter),
	}
}

// Register adds an adapter under its own Name().
func (o *Orchestrator) Register(a adapters.Adapter) {
	o.providers[a.Name()] = a
}

// Close ends the orchestrator's lifecycle. It releases nothing: the
// orchestrator holds no goroutines or connections of its own, and it
// neither clears nor closes its Store.
func (o *Orchestrator) Close() {}

// EnrichBrand runs enrich_brand(domain, providers?). A nil or empty
// providerNames uses every registered provider.
func (o *Orchestrator) EnrichBrand(ctx context.Context, domain string, providerNames []string) map[string]Result {
	names := providerNames
	if len(names) == 0 {
		names = o.allProviderNames()
	}
	return o.fanOut(ctx, evidence.EntityBrand, domain, names)
}

// EnrichProduct runs enrich_product(id, providers?); when providerNames is
// unset, only adapters declaring product scope are used.
func (o *Orchestrator) EnrichProduct(ctx context.Context, productID string, providerNames []string) map[string]Result {
	names := providerNames
	if len(names) == 0 {
		names = o.productScopedProviderNames()
	}
	return o.fanOut(ctx, evidence.EntityProduct, productID, names)
}

func (o *Orchestrator) allProviderNames() []string {
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	return names
}

func (o *Orchestrator) productScopedProviderNames() []string {
	names := make([]string, 0, len(o.providers))
	for name, a := range o.providers {
		if sp, ok := a.(adapters.SupportsProduct); ok && sp.SupportsProductScope() {
			names = append(names, name)
		}
	}
	return names
}

func (o *Orchestrator) fanOut(ctx context.Context, entity evidence.Entity, id string, names []string) map[string]Result {
	type labeled struct {
		name string
		result Result
	}

	ch := make(chan labeled, len(names))

	for _, name := range names {
		adapter, ok := o.providers[name]
		if !ok {
			continue
		}
		go func(name string, adapter adapters.Adapter) {
			callCtx, cancel := context.WithTimeout(ctx, DefaultProviderTimeout)
			defer cancel()
			ev, err := o.fetchOne(callCtx, adapter, entity, id)
			ch <- labeled{name: name, result: Result{Evidence: ev, Err: err}}
		}(name, adapter)
	}

	out := make(map[string]Result, len(names))
	for range names {
		l := <-ch
		if l.result.Err == adapters.ErrUnsupported {
			continue // silent skip
		}
		if l.result.Err != nil {
			log.Warn().Str("provider", l.name).Err(l.result.Err).Msg("enrichment provider call failed")
		}
		out[l.name] = l.result
	}
	return out
}

// fetchOne implements the per-provider algorithm of steps 1-6,
// coalescing duplicate in-flight requests for the same key via singleflight.
func (o *Orchestrator) fetchOne(ctx context.Context, adapter adapters.Adapter, entity evidence.Entity, id string) (evidence.Evidence, error) {
	key := cache.Key{Provider: adapter.Name(), Entity: entity, ID: id}

	if cached, ok := o.store.Get(key); ok && !cached.Expired(time.Now()) {
		return cached, nil
	}

	v, err, _ := o.group.Do(key.String(), func() (interface{}, error) {
			var ev evidence.Evidence
			var ferr error
			if entity == evidence.EntityBrand {
				ev, ferr = adapter.FetchBrand(ctx, id)
			} else {
				ev, ferr = adapter.FetchProduct(ctx, id)
			}
			if ferr != nil {
				return evidence.Evidence{}, ferr
			}

			history := o.store.History(key)
			if detectAnomaly(ev.Data, history) {
				if ev.Data == nil {
					ev.Data = map[string]interface{}{}
				}
				ev.Data["anomaly_detected"] = true
				ev.TTLHours = 1
			}

			o.store.Put(key, ev)
			return ev, nil
		})
	if err != nil {
		return evidence.Evidence{}, err
	}
	return v.(evidence.Evidence), nil
}

// detectAnomaly flags a rating jump > 1.5 stars or > 10x review-count
// growth against the most recent historical snapshot.
func detectAnomaly(data map[string]interface{}, history []map[string]interface{}) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]

	if newRating, ok := asFloat(data["avg_rating"]); ok {
		if lastRating, ok := asFloat(last["avg_rating"]); ok {
			if math.Abs(newRating-lastRating) > ratingJumpThreshold {
				return true
			}
		}
	}

	if newCount, ok := asFloat(data["count_total"]); ok {
		if lastCount, ok := asFloat(last["count_total"]); ok && lastCount > 0 {
			growth := newCount / lastCount
			if growth > countGrowthFactor {
				return true
			}
		}
	}

	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// IssueVC issues a verifiable credential around ev.
func (o *Orchestrator) IssueVC(ev evidence.Evidence, issuerID string) (evidence.VerifiableCredential, error) {
	return evidence.IssueVC(ev, issuerID, time.Now().UTC())
}

// Health lists the registered providers, mapping each name to
// "registered:<name>"; it reports no guard state and is not a bound HTTP
// listener.
func (o *Orchestrator) Health() map[string]string {
	out := make(map[string]string, len(o.providers))
	for name := range o.providers {
		out[name] = fmt.Sprintf("registered:%s", name)
	}
	return out
}
