package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/axp-project/trust-engine/internal/infrastructure/async"
)

var (
	batchConcurrency   int
	batchTargetLatency time.Duration
)

var enrichBatchCmd = &cobra.Command{
	Use:   "batch <domains.txt>",
	Short: "Enrich many brand domains concurrently, one per line",
	Long: `Reads newline-separated domains and runs enrich_brand for each,
bounded by an adaptive worker pool (internal/infrastructure/async) rather
than one goroutine per line, so a large input file doesn't open an
unbounded number of simultaneous provider calls.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrichBatch,
}

func init() {
	enrichCmd.AddCommand(enrichBatchCmd)

	enrichBatchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "Maximum concurrent domain enrichments")
	enrichBatchCmd.Flags().DurationVar(&batchTargetLatency, "target-latency", 5*time.Second, "Target per-domain latency for adaptive scaling")
}

func runEnrichBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open domains file: %w", err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			domains = append(domains, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read domains file: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), enrichTimeout)
	defer cancel()

	orc := buildOrchestrator()
	defer orc.Close()

	manager := async.NewConcurrencyManager(batchConcurrency, batchTargetLatency)

	results := make(map[string]map[string]interface{}, len(domains))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, domain := range domains {
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()

			if err := manager.AcquireWorker(ctx); err != nil {
				log.Warn().Str("domain", domain).Err(err).Msg("batch worker acquisition failed")
				return
			}
			start := time.Now()

			brandResults := orc.EnrichBrand(ctx, domain, nil)

			succeeded := true
			perDomain := make(map[string]interface{}, len(brandResults))
			for provider, r := range brandResults {
				if r.Err != nil {
					succeeded = false
					perDomain[provider] = r.Err.Error()
					continue
				}
				perDomain[provider] = r.Evidence.Data
			}

			manager.ReleaseWorker(succeeded, time.Since(start))

			mu.Lock()
			results[domain] = perDomain
			mu.Unlock()
		}(domain)
	}
	wg.Wait()

	out := map[string]interface{}{
		"results":   results,
		"metrics":   manager.GetMetrics(),
		"generated": time.Now().UTC(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
