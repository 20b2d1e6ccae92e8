// Package adapters implements the per-source fetchers that turn a
// third-party API response into Evidence. Each adapter is a thin capability
// around a guards.ProviderGuard; the orchestrator depends only on the
// Adapter interface below, never on a concrete provider type.
package adapters

import (
	"context"
	"errors"

	"github.com/axp-project/trust-engine/internal/evidence"
)

// ErrUnsupported signals that an adapter does not support the requested
// scope (e.g. a brand-only review platform asked for product data).
// Callers must treat this as a skip, never as a failure.
var ErrUnsupported = errors.New("adapter: operation not supported")

// Adapter is the two-method capability every provider exposes. Name
// identifies the provider for cache keys and logging.
type Adapter interface {
	Name() string
	FetchBrand(ctx context.Context, domain string) (evidence.Evidence, error)
	FetchProduct(ctx context.Context, productID string) (evidence.Evidence, error)
}

// SupportsProduct reports whether an adapter declares product scope, used
// by the orchestrator to build the default provider set for enrich_product.
type SupportsProduct interface {
	SupportsProductScope() bool
}
