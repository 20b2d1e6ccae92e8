package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/axp-project/trust-engine/internal/intent"
)

var (
	intentSinceDays float64
	intentSubjectID string
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Run the purchase-intent mixing pipeline",
}

var intentMixCmd = &cobra.Command{
	Use:   "mix <sources.json>",
	Short: "Mix per-signal intent extractions into taxonomy shares",
	Long: `Reads an intent.Sources document (orders, returns, behavioral
events, text mentions, and acquisition records) from a JSON file and prints
the mixed, time-decayed, Dirichlet-smoothed intent signal for each taxonomy
entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runIntentMix,
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.AddCommand(intentMixCmd)

	intentMixCmd.Flags().Float64Var(&intentSinceDays, "since-days", 365, "Lookback window in days for time-decay weighting")
	intentMixCmd.Flags().StringVar(&intentSubjectID, "subject-id", "", "Identifier to tag in the output (customer/session id)")
}

func runIntentMix(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}

	var sources intent.Sources
	if err := json.Unmarshal(raw, &sources); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}

	x := intent.NewDefault()
	signals := x.ComputeIntentSignals(sources, intentSinceDays)

	entries := make([]map[string]interface{}, 0, len(signals))
	for _, s := range signals {
		entries = append(entries, map[string]interface{}{
			"intent":     s.Intent,
			"share":      s.Share,
			"confidence": s.Confidence,
			"method":     s.Method,
			"evidence":   s.Evidence,
		})
	}

	out := map[string]interface{}{
		"subject_id": intentSubjectID,
		"signals":    entries,
		"generated":  time.Now().UTC(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
