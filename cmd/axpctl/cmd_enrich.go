package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/axp-project/trust-engine/internal/cache"
	"github.com/axp-project/trust-engine/internal/config"
	axphttp "github.com/axp-project/trust-engine/internal/http"
	"github.com/axp-project/trust-engine/internal/orchestrator"
	"github.com/axp-project/trust-engine/internal/providers/adapters"
	"github.com/axp-project/trust-engine/internal/providers/guards"
	providerruntime "github.com/axp-project/trust-engine/internal/providers/runtime"
)

var (
	enrichConfigPath string
	enrichProviders  string
	enrichTimeout    time.Duration
	enrichMaxHistory int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run multi-provider evidence enrichment",
	Long: `Fan out to every configured third-party provider for a brand or
product and report each provider's Evidence or failure.`,
}

var enrichBrandCmd = &cobra.Command{
	Use:   "brand <domain>",
	Short: "Enrich a brand domain across all registered providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrich(cmd.Context(), "brand", args[0])
	},
}

var enrichProductCmd = &cobra.Command{
	Use:   "product <product_id>",
	Short: "Enrich a product across product-scoped providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrich(cmd.Context(), "product", args[0])
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.AddCommand(enrichBrandCmd, enrichProductCmd)

	enrichCmd.PersistentFlags().StringVar(&enrichConfigPath, "config", "config/providers.yaml", "Path to provider configuration file")
	enrichCmd.PersistentFlags().StringVar(&enrichProviders, "providers", "", "Comma-separated provider names (default: all applicable)")
	enrichCmd.PersistentFlags().DurationVar(&enrichTimeout, "timeout", 30*time.Second, "Overall command timeout")
	enrichCmd.PersistentFlags().IntVar(&enrichMaxHistory, "max-history", 20, "Evidence snapshots retained per key for anomaly detection")
}

func runEnrich(ctx context.Context, entityType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	orc := buildOrchestrator()
	defer orc.Close()

	var names []string
	if enrichProviders != "" {
		names = strings.Split(enrichProviders, ",")
	}

	var results map[string]orchestrator.Result
	if entityType == "brand" {
		results = orc.EnrichBrand(ctx, id, names)
	} else {
		results = orc.EnrichProduct(ctx, id, names)
	}

	resp := axphttp.EnrichmentResponse{
		EntityType: entityType,
		EntityID:   id,
		Providers:  make(map[string]axphttp.ProviderEv, len(results)),
		Generated:  time.Now().UTC(),
	}
	for name, r := range results {
		if r.Err != nil {
			resp.Providers[name] = axphttp.ProviderEv{Error: r.Err.Error()}
			continue
		}
		resp.Providers[name] = axphttp.ProviderEv{Data: r.Evidence.Data}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// buildOrchestrator registers every known adapter, loading per-provider
// guard configuration from enrichConfigPath when present and otherwise
// falling back to the built-in defaults so the CLI runs standalone.
func buildOrchestrator() *orchestrator.Orchestrator {
	store := cache.New(enrichMaxHistory)
	orc := orchestrator.New(store)

	cfg, err := config.LoadProvidersConfig(enrichConfigPath)
	if err != nil {
		log.Warn().Err(err).Str("path", enrichConfigPath).Msg("no provider config found, using built-in defaults")
		cfg = nil
	} else {
		cfg.WarnUnknownProviders(func(name string) {
			log.Warn().Str("provider", name).Msg("provider config entry has no built-in adapter yet")
		})
	}

	baseURLs := map[string]string{
		"review_platform":     "https://api.trustpilot.com",
		"certification_shop":  "https://api.trustedshops.com",
		"aggregated_ratings":  "https://www.googleapis.com/shoppingcontent",
		"tech_stack":          "https://api.builtwith.com",
	}

	guardConfig := func(name string) guards.ProviderConfig {
		if cfg != nil {
			if pc, ok := cfg.GetProvider(name); ok {
				baseURLs[name] = pc.BaseURL
				return guards.ProviderConfig{
					Name:           name,
					TTLSeconds:     pc.TTLSecs,
					BurstLimit:     pc.Burst,
					SustainedRate:  float64(pc.RPS),
					MaxRetries:     3,
					BackoffBaseMs:  pc.BackoffMS.Base,
					FailureThresh:  0.5,
					WindowRequests: pc.Circuit.FailureThreshold,
					ProbeInterval:  pc.Circuit.TimeoutMS / 1000, // guards take seconds
				}
			}
		}
		// Fall back to the provider's hot-tier TTL from the runtime cache
		// config when no file-based config supplies one.
		ttl := 300
		if tiers, ok := providerruntime.CacheConfigs[name]; ok {
			ttl = int(tiers.HotCacheTTL.Seconds())
		}
		return guards.ProviderConfig{Name: name, TTLSeconds: ttl, BurstLimit: 10, SustainedRate: 5}
	}

	orc.Register(adapters.NewReviewPlatformAdapter(baseURLs["review_platform"], guardConfig("review_platform")))
	orc.Register(adapters.NewCertificationShopAdapter(baseURLs["certification_shop"], guardConfig("certification_shop")))
	orc.Register(adapters.NewAggregatedRatingsAdapter(baseURLs["aggregated_ratings"], guardConfig("aggregated_ratings")))
	orc.Register(adapters.NewTechStackAdapter(baseURLs["tech_stack"], guardConfig("tech_stack")))

	return orc
}
