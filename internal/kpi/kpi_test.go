package kpi

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCalculateReliabilityScoreNamedScenario(t *testing.T) {
	// rma_count=2, units_sold=1000, category_rma_avg=5.0, avg_days_to_claim=600,
	// reviews_durability_avg=0.8 (claim_count and warranty_claims unset/zero).
	d := ProductData{
		RMACount:          2,
		UnitsSold:         1000,
		CategoryRMAAvg:    5.0,
		AvgDaysToClaim:    600,
		ReviewsDurability: 0.8,
	}
	score, evidence := CalculateReliabilityScore(d)
	if score <= 0 || score >= 1 {
		t.Fatalf("expected score in (0,1), got %v", score)
	}
	if !approxEqual(score, 0.417, 0.02) {
		t.Errorf("expected reliability score near 0.417 for this input, got %v", score)
	}
	if len(evidence) != 2 {
		t.Errorf("expected 2 evidence entries, got %d", len(evidence))
	}
}

func TestCalculateFitHintScoreDefaults(t *testing.T) {
	score, evidence := CalculateFitHintScore(ProductData{})
	if score < 0 || score > 1 {
		t.Fatalf("expected score in [0,1], got %v", score)
	}
	if len(evidence) != 3 {
		t.Errorf("expected 3 evidence entries, got %d", len(evidence))
	}
}

func TestCalculateFitHintScoreHighReturnsLowersScore(t *testing.T) {
	low, _ := CalculateFitHintScore(ProductData{ReturnsTotal: 100, ReturnsSize: 80, PurchasesTotal: 100})
	high, _ := CalculateFitHintScore(ProductData{ReturnsTotal: 100, ReturnsSize: 5, PurchasesTotal: 100})
	if low >= high {
		t.Errorf("expected high size-return rate to produce a lower fit score: low=%v high=%v", low, high)
	}
}

func TestCalculatePerformanceScoreFootwear(t *testing.T) {
	score, evidence := CalculatePerformanceScore(ProductData{
		EnergyReturnPercent: 70,
		WeightGrams:         220,
		CushioningIndex:     8,
		StackHeightMM:       35,
	}, CategoryRunning)
	if score <= 0.5 {
		t.Errorf("expected above-average footwear performance score, got %v", score)
	}
	if len(evidence) != 2 {
		t.Errorf("expected 2 evidence entries for footwear, got %d", len(evidence))
	}
}

func TestCalculatePerformanceScoreElectronics(t *testing.T) {
	score, evidence := CalculatePerformanceScore(ProductData{
		BenchmarkPercentile: 90,
		EfficiencyRating:    5,
		LatencyMS:           20,
	}, CategoryElectronics)
	if score <= 0.5 {
		t.Errorf("expected above-average electronics performance score, got %v", score)
	}
	if len(evidence) != 1 {
		t.Errorf("expected 1 evidence entry for electronics, got %d", len(evidence))
	}
}

func TestCalculateOwnerSatisfactionScoreHighRatingScoresHigher(t *testing.T) {
	low, _ := CalculateOwnerSatisfactionScore(ProductData{
		AvgRating: 2.0, ReviewCountTotal: 100, ReviewCountVerified: 50,
		HasAvgRatingVerified: true, AvgRatingVerified: 2.0,
	})
	high, _ := CalculateOwnerSatisfactionScore(ProductData{
		AvgRating: 4.8, ReviewCountTotal: 100, ReviewCountVerified: 50,
		HasAvgRatingVerified: true, AvgRatingVerified: 4.8,
	})
	if low >= high {
		t.Errorf("expected higher rating to produce higher satisfaction score: low=%v high=%v", low, high)
	}
}

func TestCalculateUniquenessScoreLimitedEditionScoresHigher(t *testing.T) {
	standard, _ := CalculateUniquenessScore(ProductData{})
	limited, _ := CalculateUniquenessScore(ProductData{
		IsLimitedEdition:   true,
		StockScarcityScore: 0.8,
		RareFeatureCount:   5,
		TotalFeatureCount:  10,
	})
	if limited <= standard {
		t.Errorf("expected limited-edition product to score higher uniqueness: standard=%v limited=%v", standard, limited)
	}
}

func TestCalculateCraftsmanshipScorePremiumMaterial(t *testing.T) {
	basic, _ := CalculateCraftsmanshipScore(ProductData{MaterialGrade: "basic"})
	premium, _ := CalculateCraftsmanshipScore(ProductData{MaterialGrade: "premium", WarrantyDays: 730})
	if premium <= basic {
		t.Errorf("expected premium material + full warranty to outscore basic: basic=%v premium=%v", basic, premium)
	}
}

func TestCalculateSustainabilityScoreCertificationsAndRecycling(t *testing.T) {
	score, evidence := CalculateSustainabilityScore(ProductData{
		SustainabilityCertifications: []string{"fair_trade", "organic", "carbon_neutral"},
		RecycledContentPercent:       80,
		CarbonFootprintKg:            2,
		CategoryAvgCarbonKg:          10,
		SustainablePackaging:         true,
		SupplyChainTransparency:      0.9,
	})
	if score < 0.8 {
		t.Errorf("expected high sustainability score for strong inputs, got %v", score)
	}
	if score > 1.0 {
		t.Errorf("expected score clamped to 1.0, got %v", score)
	}
	if len(evidence) != 2 {
		t.Errorf("expected 2 evidence entries, got %d", len(evidence))
	}
}

func TestCalculateInnovationScorePatentsAndAwards(t *testing.T) {
	low, _ := CalculateInnovationScore(ProductData{})
	high, _ := CalculateInnovationScore(ProductData{
		NewFeatureCount:     3,
		PatentCount:         4,
		AwardCount:          2,
		PressMentionCount:   20,
		UsesCuttingEdgeTech: true,
		TechGeneration:      2,
		IsFirstInCategory:   true,
	})
	if high <= low {
		t.Errorf("expected strong innovation signals to outscore baseline: low=%v high=%v", low, high)
	}
}

func TestCalculateAllSoftSignalsRoundsToThreeDecimals(t *testing.T) {
	signals := CalculateAllSoftSignals(ProductData{}, CategoryGeneral)
	scores := []float64{
		signals.FitHintScore, signals.ReliabilityScore, signals.PerformanceScore,
		signals.OwnerSatisfactionScore, signals.UniquenessScore, signals.CraftsmanshipScore,
		signals.SustainabilityScore, signals.InnovationScore,
	}
	for _, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("expected score in [0,1], got %v", s)
		}
		rounded := math.Round(s*1000) / 1000
		if rounded != s {
			t.Errorf("expected score already rounded to 3 decimals, got %v", s)
		}
	}
	if len(signals.Evidence) == 0 {
		t.Error("expected non-empty evidence list")
	}
}
