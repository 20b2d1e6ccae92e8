package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/axp-project/trust-engine/internal/kpi"
)

var kpiCategory string

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Run the soft-KPI calculator",
}

var kpiScoreCmd = &cobra.Command{
	Use:   "score <product_data.json>",
	Short: "Calculate all eight soft-KPI signals for a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runKPIScore,
}

func init() {
	rootCmd.AddCommand(kpiCmd)
	kpiCmd.AddCommand(kpiScoreCmd)

	kpiScoreCmd.Flags().StringVar(&kpiCategory, "category", "general", "Product category: footwear, running, electronics, general")
}

func runKPIScore(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read product data file: %w", err)
	}

	var data kpi.ProductData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse product data file: %w", err)
	}

	category, err := parseCategory(kpiCategory)
	if err != nil {
		return err
	}

	signals := kpi.CalculateAllSoftSignals(data, category)

	out := map[string]interface{}{
		"product_id": productIDOrFallback(args[0]),
		"category":   category,
		"scores": map[string]float64{
			"fit_hint_score":          signals.FitHintScore,
			"reliability_score":       signals.ReliabilityScore,
			"performance_score":       signals.PerformanceScore,
			"owner_satisfaction_score": signals.OwnerSatisfactionScore,
			"uniqueness_score":        signals.UniquenessScore,
			"craftsmanship_score":     signals.CraftsmanshipScore,
			"sustainability_score":    signals.SustainabilityScore,
			"innovation_score":        signals.InnovationScore,
		},
		"evidence":  signals.Evidence,
		"generated": time.Now().UTC(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseCategory(s string) (kpi.Category, error) {
	switch strings.ToLower(s) {
	case "footwear":
		return kpi.CategoryFootwear, nil
	case "running":
		return kpi.CategoryRunning, nil
	case "electronics":
		return kpi.CategoryElectronics, nil
	case "general", "":
		return kpi.CategoryGeneral, nil
	default:
		return "", fmt.Errorf("unknown category %q: expected footwear, running, electronics, or general", s)
	}
}

func productIDOrFallback(path string) string {
	return strings.TrimSuffix(path, ".json")
}
