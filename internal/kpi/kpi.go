// Package kpi implements the soft-KPI calculator: eight weighted composite
// scores derived from measurable sub-factors (sigmoid-normalized, except
// sustainability, which is clamped to [0,1]),
// each carrying its own sample-size-derived confidence evidence.
package kpi

import (
	"math"
	"time"
)

// Evidence is one measured sub-factor behind a composite score.
type Evidence struct {
	Factor string
	Value float64
	Source string
	Confidence float64
	Timestamp time.Time
}

// Signals is the full set of soft-KPI scores for one product, each rounded
// to three decimal places.
type Signals struct {
	FitHintScore float64
	ReliabilityScore float64
	PerformanceScore float64
	OwnerSatisfactionScore float64
	UniquenessScore float64
	CraftsmanshipScore float64
	SustainabilityScore float64
	InnovationScore float64
	Evidence []Evidence
	CalculationMethod string
	LastUpdated time.Time
}

// ProductData is the raw measured input a calculation draws sub-factors
// from. Every field defaults sensibly when absent, matching the reference
// pipeline's get-with-default behavior.
type ProductData struct {
	ReturnsTotal float64
	ReturnsSize float64
	ExchangesSize float64
	PurchasesWithAdvisor float64
	PurchasesTotal float64
	ReviewsFitPositive float64
	ReviewsWithFit float64

	RMACount float64
	ClaimCount float64
	UnitsSold float64
	AvgDaysToClaim float64
	WarrantyClaims float64
	ReviewsDurability float64
	CategoryRMAAvg float64

	EnergyReturnPercent float64
	WeightGrams float64
	CushioningIndex float64
	StackHeightMM float64
	BenchmarkPercentile float64
	EfficiencyRating float64
	LatencyMS float64
	ReviewsPerformance float64
	CategoryPerformance float64

	AvgRating float64
	AvgRatingVerified float64
	HasAvgRatingVerified bool
	ReviewCountVerified float64
	ReviewCountTotal float64
	CSATProduct float64
	CSATResponses float64
	Sentiment90d float64
	SentimentPrev90d float64
	RepeatPurchaseRate float64

	RareFeatureCount float64
	TotalFeatureCount float64
	IsLimitedEdition bool
	StockScarcityScore float64
	PricePercentileCategory float64

	MaterialGrade string
	OriginReputationScore float64
	WarrantyDays float64
	ReviewAspectQuality float64
	CraftsmanshipMentionRate float64

	SustainabilityCertifications []string
	RecycledContentPercent float64
	CarbonFootprintKg float64
	CategoryAvgCarbonKg float64
	SustainablePackaging bool
	SupplyChainTransparency float64

	NewFeatureCount float64
	PatentCount float64
	AwardCount float64
	PressMentionCount float64
	UsesCuttingEdgeTech bool
	TechGeneration float64
	IsFirstInCategory bool
}

// Category selects the domain-specific factor set for performance scoring.
type Category string

const (
	CategoryFootwear Category = "footwear"
	CategoryRunning Category = "running"
	CategoryElectronics Category = "electronics"
	CategoryGeneral Category = "general"
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// CalculateFitHintScore estimates fit accuracy from size-related returns,
// exchanges, size-advisor usage, and positive fit mentions in reviews.
func CalculateFitHintScore(d ProductData) (float64, []Evidence) {
	returnsTotal := d.ReturnsTotal
	purchasesTotal := maxFloat(d.PurchasesTotal, 1)
	reviewsWithFit := maxFloat(d.ReviewsWithFit, 1)

	returnSizeRate := d.ReturnsSize / maxFloat(returnsTotal, 1)
	exchangeSizeRate := d.ExchangesSize / purchasesTotal
	advisorUsageRate := d.PurchasesWithAdvisor / purchasesTotal
	fitPositiveRate := d.ReviewsFitPositive / reviewsWithFit

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "return_size_rate", Value: returnSizeRate, Source: "returns_data", Confidence: minFloat(1.0, returnsTotal/10), Timestamp: now},
		{Factor: "advisor_usage_rate", Value: advisorUsageRate, Source: "purchase_behavior", Confidence: minFloat(1.0, purchasesTotal/50), Timestamp: now},
		{Factor: "fit_positive_rate", Value: fitPositiveRate, Source: "review_analysis", Confidence: minFloat(1.0, reviewsWithFit/20), Timestamp: now},
	}

	rawScore := -0.4*returnSizeRate + -0.2*exchangeSizeRate + 0.2*advisorUsageRate + 0.2*fitPositiveRate
	return sigmoid(rawScore + 0.5), evidence
}

// CalculateReliabilityScore estimates durability from RMA/claim rates
// normalized against the category baseline, MTBF proxy, and warranty load.
func CalculateReliabilityScore(d ProductData) (float64, []Evidence) {
	unitsSold := maxFloat(d.UnitsSold, 1)
	if d.UnitsSold == 0 {
		unitsSold = 1000 // default sample size, matching the reference baseline
	}
	avgDaysToClaim := d.AvgDaysToClaim
	if avgDaysToClaim == 0 {
		avgDaysToClaim = 365
	}
	categoryRMAAvg := d.CategoryRMAAvg
	if categoryRMAAvg == 0 {
		categoryRMAAvg = 5.0
	}

	rmaRate := (d.RMACount / unitsSold) * 1000
	claimRate := (d.ClaimCount / unitsSold) * 1000
	warrantyRate := (d.WarrantyClaims / unitsSold) * 1000
	mtbfNormalized := minFloat(1.0, avgDaysToClaim/730)

	now := time.Now().UTC()
	claimConfidence := 0.1
	if d.ClaimCount > 0 {
		claimConfidence = minFloat(1.0, d.ClaimCount/10)
	}
	evidence := []Evidence{
		{Factor: "rma_per_1000", Value: rmaRate, Source: "warranty_system", Confidence: minFloat(1.0, unitsSold/1000), Timestamp: now},
		{Factor: "mtbf_days", Value: avgDaysToClaim, Source: "warranty_system", Confidence: claimConfidence, Timestamp: now},
	}

	rmaRateNormalized := 1.0 - minFloat(1.0, rmaRate/categoryRMAAvg)
	claimRateNormalized := 1.0 - minFloat(1.0, claimRate/(categoryRMAAvg*2))
	durability := d.ReviewsDurability
	if durability == 0 {
		durability = 0.5
	}

	rawScore := -0.3*rmaRateNormalized + -0.3*claimRateNormalized + 0.2*mtbfNormalized +
		-0.1*(1-minFloat(1.0, warrantyRate/10)) + 0.1*durability

	return sigmoid(rawScore), evidence
}

// CalculatePerformanceScore derives a category-specific performance score;
// footwear and electronics use dedicated factor sets, other categories fall
// back to a review-mention-vs-category-average ratio.
func CalculatePerformanceScore(d ProductData, category Category) (float64, []Evidence) {
	var evidence []Evidence
	var rawScore float64
	now := time.Now().UTC()

	switch category {
	case CategoryFootwear, CategoryRunning:
		energyReturnPercent := d.EnergyReturnPercent
		if energyReturnPercent == 0 {
			energyReturnPercent = 50
		}
		energyReturn := energyReturnPercent / 100

		weightGrams := d.WeightGrams
		if weightGrams == 0 {
			weightGrams = 300
		}
		weightScore := 1.0 - minFloat(1.0, maxFloat(0, weightGrams-200)/300)

		cushioningIndex := d.CushioningIndex
		if cushioningIndex == 0 {
			cushioningIndex = 5
		}
		cushioningIndex /= 10

		stackHeight := d.StackHeightMM
		if stackHeight == 0 {
			stackHeight = 25
		}
		stackScore := 0.5
		if category == CategoryRunning {
			stackScore = minFloat(1.0, stackHeight/40)
		}

		evidence = []Evidence{
			{Factor: "energy_return", Value: energyReturn, Source: "lab_test", Confidence: 0.95, Timestamp: now},
			{Factor: "weight_score", Value: weightScore, Source: "product_specs", Confidence: 1.0, Timestamp: now},
		}
		rawScore = 0.4*energyReturn + 0.2*weightScore + 0.2*cushioningIndex + 0.2*stackScore

	case CategoryElectronics:
		benchmarkPercentile := d.BenchmarkPercentile
		if benchmarkPercentile == 0 {
			benchmarkPercentile = 50
		}
		benchmarkScore := benchmarkPercentile / 100

		efficiencyRating := d.EfficiencyRating
		if efficiencyRating == 0 {
			efficiencyRating = 3
		}
		efficiencyRating /= 5

		latencyMS := d.LatencyMS
		if latencyMS == 0 {
			latencyMS = 100
		}
		latencyScore := 1.0 - minFloat(1.0, latencyMS/200)

		evidence = []Evidence{
			{Factor: "benchmark_percentile", Value: benchmarkScore, Source: "benchmark_suite", Confidence: 0.9, Timestamp: now},
		}
		rawScore = 0.5*benchmarkScore + 0.3*efficiencyRating + 0.2*latencyScore

	default:
		performanceMentions := d.ReviewsPerformance
		if performanceMentions == 0 {
			performanceMentions = 0.5
		}
		categoryAvg := maxFloat(d.CategoryPerformance, 0.1)
		if d.CategoryPerformance == 0 {
			categoryAvg = maxFloat(0.5, 0.1)
		}
		rawScore = performanceMentions / categoryAvg
	}

	return minFloat(1.0, sigmoid(rawScore)), evidence
}

// CalculateOwnerSatisfactionScore blends verified-review ratings, CSAT
// survey scores, recent sentiment trend, and repeat-purchase rate.
func CalculateOwnerSatisfactionScore(d ProductData) (float64, []Evidence) {
	avgRatingAll := d.AvgRating
	if avgRatingAll == 0 {
		avgRatingAll = 3.0
	}
	avgRatingVerified := avgRatingAll
	if d.HasAvgRatingVerified {
		avgRatingVerified = d.AvgRatingVerified
	}
	reviewCountTotal := maxFloat(d.ReviewCountTotal, 1)
	reviewCountVerified := d.ReviewCountVerified

	csatScore := d.CSATProduct
	if csatScore == 0 {
		csatScore = 0.7
	}
	sentimentRecent := d.Sentiment90d
	if sentimentRecent == 0 {
		sentimentRecent = 0.5
	}
	sentimentPrevious := d.SentimentPrev90d
	if sentimentPrevious == 0 {
		sentimentPrevious = 0.5
	}
	sentimentTrend := sentimentRecent - sentimentPrevious

	repeatPurchaseRate := d.RepeatPurchaseRate
	if repeatPurchaseRate == 0 {
		repeatPurchaseRate = 0.1
	}

	weightedRating := (avgRatingVerified*reviewCountVerified*1.5 + avgRatingAll*(reviewCountTotal-reviewCountVerified)) /
		(reviewCountVerified*1.5 + (reviewCountTotal - reviewCountVerified))
	ratingNormalized := (weightedRating - 1) / 4

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "weighted_rating", Value: weightedRating, Source: "review_system", Confidence: minFloat(1.0, reviewCountTotal/100), Timestamp: now},
		{Factor: "csat_score", Value: csatScore, Source: "survey_system", Confidence: minFloat(1.0, d.CSATResponses/50), Timestamp: now},
		{Factor: "sentiment_trend", Value: sentimentTrend, Source: "sentiment_analysis", Confidence: 0.8, Timestamp: now},
	}

	rawScore := 0.4*ratingNormalized + 0.3*csatScore + 0.2*(sentimentRecent+sentimentTrend) + 0.1*repeatPurchaseRate
	return minFloat(1.0, sigmoid(rawScore)), evidence
}

// CalculateUniquenessScore estimates market differentiation from feature
// rarity, limited-edition/scarcity signals, and price positioning.
func CalculateUniquenessScore(d ProductData) (float64, []Evidence) {
	totalFeatures := maxFloat(d.TotalFeatureCount, 10)
	featureRarity := d.RareFeatureCount / totalFeatures

	pricePercentile := d.PricePercentileCategory
	if pricePercentile == 0 {
		pricePercentile = 50
	}
	pricePercentile /= 100

	limited := 0.0
	if d.IsLimitedEdition {
		limited = 1.0
	}

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "feature_rarity", Value: featureRarity, Source: "market_analysis", Confidence: 0.7, Timestamp: now},
	}

	score := sigmoid(featureRarity*0.4 + limited*0.2 + d.StockScarcityScore*0.2 + pricePercentile*0.2)
	return score, evidence
}

var materialGradeScores = map[string]float64{
	"premium": 0.9,
	"high": 0.7,
	"standard": 0.5,
	"basic": 0.3,
}

// CalculateCraftsmanshipScore estimates build quality from material grade,
// manufacturing origin reputation, warranty length, and review aspects.
func CalculateCraftsmanshipScore(d ProductData) (float64, []Evidence) {
	materialScore, ok := materialGradeScores[d.MaterialGrade]
	if !ok {
		materialScore = 0.5
	}

	originScore := d.OriginReputationScore
	if originScore == 0 {
		originScore = 0.5
	}

	warrantyDays := d.WarrantyDays
	if warrantyDays == 0 {
		warrantyDays = 90
	}
	warrantyScore := minFloat(1.0, warrantyDays/730)

	reviewQuality := d.ReviewAspectQuality
	if reviewQuality == 0 {
		reviewQuality = 0.5
	}

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "material_grade", Value: materialScore, Source: "product_specs", Confidence: 0.9, Timestamp: now},
	}

	score := sigmoid(materialScore*0.3 + originScore*0.2 + warrantyScore*0.2 +
		reviewQuality*0.2 + d.CraftsmanshipMentionRate*0.1)
	return score, evidence
}

// CalculateSustainabilityScore estimates environmental impact from
// certifications, recycled content, relative carbon footprint, packaging,
// and supply-chain transparency.
func CalculateSustainabilityScore(d ProductData) (float64, []Evidence) {
	certScore := minFloat(1.0, float64(len(d.SustainabilityCertifications))/3)
	recycledPercentage := d.RecycledContentPercent / 100

	carbonKg := d.CarbonFootprintKg
	if carbonKg == 0 {
		carbonKg = 10
	}
	categoryAvgCarbon := d.CategoryAvgCarbonKg
	if categoryAvgCarbon == 0 {
		categoryAvgCarbon = 10
	}
	carbonScore := maxFloat(0, 1-(carbonKg/categoryAvgCarbon))

	packaging := 0.0
	if d.SustainablePackaging {
		packaging = 1.0
	}

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "recycled_content", Value: recycledPercentage, Source: "product_specs", Confidence: 0.95, Timestamp: now},
		{Factor: "carbon_footprint_relative", Value: carbonScore, Source: "lca_analysis", Confidence: 0.8, Timestamp: now},
	}

	score := clamp01(certScore*0.3 + recycledPercentage*0.25 + carbonScore*0.2 +
		packaging*0.1 + d.SupplyChainTransparency*0.15)
	return score, evidence
}

// CalculateInnovationScore estimates novelty from feature/patent counts,
// market recognition, and technology-generation adoption.
func CalculateInnovationScore(d ProductData) (float64, []Evidence) {
	techGen := d.TechGeneration
	if techGen == 0 {
		techGen = 1
	}
	usesNewTech := 0.0
	if d.UsesCuttingEdgeTech {
		usesNewTech = 1.0
	}
	firstMover := 0.0
	if d.IsFirstInCategory {
		firstMover = 1.0
	}

	now := time.Now().UTC()
	evidence := []Evidence{
		{Factor: "patent_count", Value: d.PatentCount, Source: "patent_database", Confidence: 1.0, Timestamp: now},
	}

	score := sigmoid(
		minFloat(1.0, d.NewFeatureCount/3)*0.25 +
		minFloat(1.0, d.PatentCount/2)*0.2 +
		minFloat(1.0, d.AwardCount/2)*0.15 +
		minFloat(1.0, d.PressMentionCount/10)*0.1 +
		usesNewTech*0.15 +
		(techGen-1)*0.1 +
		firstMover*0.05,
	)
	return score, evidence
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// CalculateAllSoftSignals runs every calculation and rounds each score to
// three decimal places.
func CalculateAllSoftSignals(d ProductData, category Category) Signals {
	var all []Evidence

	fit, ev := CalculateFitHintScore(d)
	all = append(all, ev...)
	reliability, ev := CalculateReliabilityScore(d)
	all = append(all, ev...)
	performance, ev := CalculatePerformanceScore(d, category)
	all = append(all, ev...)
	satisfaction, ev := CalculateOwnerSatisfactionScore(d)
	all = append(all, ev...)
	uniqueness, ev := CalculateUniquenessScore(d)
	all = append(all, ev...)
	craftsmanship, ev := CalculateCraftsmanshipScore(d)
	all = append(all, ev...)
	sustainability, ev := CalculateSustainabilityScore(d)
	all = append(all, ev...)
	innovation, ev := CalculateInnovationScore(d)
	all = append(all, ev...)

	return Signals{
		FitHintScore: round3(fit),
		ReliabilityScore: round3(reliability),
		PerformanceScore: round3(performance),
		OwnerSatisfactionScore: round3(satisfaction),
		UniquenessScore: round3(uniqueness),
		CraftsmanshipScore: round3(craftsmanship),
		SustainabilityScore: round3(sustainability),
		InnovationScore: round3(innovation),
		Evidence: all,
		CalculationMethod: "weighted_factors_sigmoid_normalized",
		LastUpdated: time.Now().UTC(),
	}
}
