// Package intent implements the purchase-intent signal pipeline:
// five independent extractors over orders, returns, on-site behavior,
// text, and acquisition channel, mixed with recency decay and Dirichlet
// smoothing into a ranked, confidence-scored IntentSignal list.
package intent

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Type is one of the 12 canonical intent labels.
type Type string

const (
	Gift Type = "gift"
	DailyCommute Type = "daily_commute"
	Hobby Type = "hobby"
	ProfessionalUse Type = "professional_use"
	Travel Type = "travel"
	Fashion Type = "fashion"
	Sport Type = "sport"
	Basketball Type = "basketball"
	Running Type = "running"
	Outdoor Type = "outdoor"
	Luxury Type = "luxury"
	Value Type = "value"
)

// AllTypes enumerates the closed taxonomy, used to seed Dirichlet smoothing
// for intents with zero raw mass.
var AllTypes = []Type{
	Gift, DailyCommute, Hobby, ProfessionalUse, Travel, Fashion,
	Sport, Basketball, Running, Outdoor, Luxury, Value,
}

// Weights configures how the five sources combine.
type Weights struct {
	Text float64
	Behavior float64
	Cart float64
	Channel float64
}

// DefaultWeights matches the reference mix: text 0.40, behavior 0.25,
// cart (orders+returns) 0.25, channel 0.10.
var DefaultWeights = Weights{Text: 0.40, Behavior: 0.25, Cart: 0.25, Channel: 0.10}

// DefaultHalfLifeDays is the recency half-life for time-decayed mixing.
const DefaultHalfLifeDays = 90

// DirichletAlpha is the smoothing pseudo-count applied per intent class.
const DirichletAlpha = 0.5

// Order is one purchase record considered for intent extraction.
type Order struct {
	CreatedAt time.Time
	GiftWrap bool
	GiftMessage string
	Items []OrderItem
}

// OrderItem is a single line item's product category, used for bundle
// heuristics (e.g. running shoes + running socks implies running intent).
type OrderItem struct {
	Category string
}

// ReturnItem carries the stated return reason.
type ReturnItem struct {
	Reason string
}

// Event is one on-site behavioral event (size-guide view, configurator use,
// guide reads, and so on).
type Event struct {
	Type string
	GuideType string
	Timestamp time.Time
}

// TextItem is one review, Q&A entry, or support ticket considered for
// keyword- and classifier-based intent extraction.
type TextItem struct {
	Text string
	VerifiedPurchase bool
	Source string // "review" (default), "support_ticket", "q_and_a"
	IntentProbs map[Type]float64
}

// Acquisition is one session's attribution metadata.
type Acquisition struct {
	UTMCampaign string
	UTMSource string
	UTMTerm string
	LandingPage string
}

// Sources bundles every extractor's raw input for one product.
type Sources struct {
	Orders []Order
	Returns []ReturnItem
	Events []Event
	Texts []TextItem
	Acquisitions []Acquisition
}

// Signal is a single mixed, smoothed intent estimate.
type Signal struct {
	Intent Type
	Share float64
	Confidence float64
	Method string
	Evidence []string
	LastUpdated time.Time
}

// textKeywords drives the simplified keyword classifier; a proper NLP
// classifier's probabilities (IntentProbs), when present, are added on top
// of the keyword matches.
var textKeywords = map[Type][]string{
	Gift: {"gift", "present", "birthday", "christmas", "anniversary"},
	Sport: {"running", "training", "workout", "gym", "athletic"},
	ProfessionalUse: {"work", "professional", "office", "business", "daily"},
	Travel: {"travel", "trip", "vacation", "flight", "luggage"},
	Fashion: {"style", "look", "outfit", "trendy", "fashion"},
	DailyCommute: {"commute", "daily", "everyday", "walking", "comfortable"},
}

// Extractor computes per-source intent scores and mixes them into the
// final ranked Signal list. Zero-value Extractor is not usable; use New.
type Extractor struct {
	weights Weights
	halfLifeDays float64
}

// New builds an Extractor with the given mixing weights and recency
// half-life in days.
func New(weights Weights, halfLifeDays float64) *Extractor {
	return &Extractor{weights: weights, halfLifeDays: halfLifeDays}
}

// NewDefault builds an Extractor using DefaultWeights and DefaultHalfLifeDays.
func NewDefault() *Extractor {
	return New(DefaultWeights, DefaultHalfLifeDays)
}

// ExtractFromOrders derives intent mass from gift-wrap flags, holiday
// timing, and co-purchase bundles, normalized by order count.
func (x *Extractor) ExtractFromOrders(orders []Order) map[Type]float64 {
	scores := map[Type]float64{}
	if len(orders) == 0 {
		return scores
	}

	for _, order := range orders {
		if order.GiftWrap || order.GiftMessage != "" {
			scores[Gift] += 1
		}
		if isHolidaySeason(order.CreatedAt) {
			scores[Gift] += 0.3
		}
		for intent, score := range analyzeBundle(order.Items) {
			scores[intent] += score
		}
	}

	total := float64(len(orders))
	for intent := range scores {
		scores[intent] /= total
	}
	return scores
}

// ExtractFromReturns derives negative/corrective signal from stated return
// reasons (size issues imply fashion/sport fit concerns, and so on).
func (x *Extractor) ExtractFromReturns(returns []ReturnItem) map[Type]float64 {
	adjustments := map[Type]float64{}
	for _, r := range returns {
		switch r.Reason {
		case "size_issue":
			adjustments[Fashion] += 0.1
			adjustments[Sport] += 0.1
		case "quality_expectation":
			adjustments[ProfessionalUse] += 0.2
		case "changed_mind":
			adjustments[Fashion] += 0.15
		}
	}
	return adjustments
}

// ExtractFromBehavior derives intent from on-site tool usage, normalized by
// the square root of total event count so high-traffic products aren't
// trivially dominated by raw event volume.
func (x *Extractor) ExtractFromBehavior(events []Event) map[Type]float64 {
	scores := map[Type]float64{}
	eventCount := 0

	for _, e := range events {
		eventCount++
		switch e.Type {
		case "view_size_guide":
			scores[Fashion] += 0.3
			scores[Sport] += 0.2
		case "view_3d":
			scores[Fashion] += 0.2
			scores[Luxury] += 0.1
		case "use_configurator":
			scores[ProfessionalUse] += 0.3
			scores[Hobby] += 0.2
		case "compare_products":
			scores[Value] += 0.2
		case "read_guide":
			guide := strings.ToLower(e.GuideType)
			if strings.Contains(guide, "running") {
				scores[Running] += 0.5
			} else if strings.Contains(guide, "basketball") {
				scores[Basketball] += 0.5
			}
		}
	}

	if eventCount > 0 {
		denom := math.Sqrt(float64(eventCount))
		for intent := range scores {
			scores[intent] /= denom
		}
	}
	return scores
}

// ExtractFromText derives intent from keyword matches and, when present, a
// classifier's own per-intent probabilities, weighted by source
// verification status and normalized by total applied weight.
func (x *Extractor) ExtractFromText(texts []TextItem) map[Type]float64 {
	scores := map[Type]float64{}

	for _, t := range texts {
		content := strings.ToLower(t.Text)
		weight := textWeight(t)

		for intent, keywords := range textKeywords {
			matches := 0
			for _, kw := range keywords {
				if strings.Contains(content, kw) {
					matches++
				}
			}
			if matches > 0 {
				scores[intent] += float64(matches) * weight
			}
		}

		for intent, prob := range t.IntentProbs {
			scores[intent] += prob * weight
		}
	}

	var totalWeight float64
	for _, t := range texts {
		totalWeight += textWeight(t)
	}
	if totalWeight > 0 {
		for intent := range scores {
			scores[intent] /= totalWeight
		}
	}
	return scores
}

// ExtractFromChannel derives intent from UTM campaign and term attribution,
// normalized by acquisition count. UTMSource and LandingPage are not read.
func (x *Extractor) ExtractFromChannel(acquisitions []Acquisition) map[Type]float64 {
	scores := map[Type]float64{}

	for _, a := range acquisitions {
		campaign := strings.ToLower(a.UTMCampaign)
		term := strings.ToLower(a.UTMTerm)

		switch {
		case strings.Contains(campaign, "gift") || strings.Contains(campaign, "holiday"):
			scores[Gift] += 1
		case strings.Contains(campaign, "sport") || strings.Contains(campaign, "athletic"):
			scores[Sport] += 1
		case strings.Contains(campaign, "professional") || strings.Contains(campaign, "business"):
			scores[ProfessionalUse] += 1
		}

		if term != "" {
			for _, intentType := range AllTypes {
				needle := strings.ReplaceAll(string(intentType), "_", " ")
				if strings.Contains(term, needle) {
					scores[intentType] += 0.5
				}
			}
		}
	}

	total := float64(len(acquisitions))
	if total > 0 {
		for intent := range scores {
			scores[intent] /= total
		}
	}
	return scores
}

// ComputeIntentSignals runs every extractor, mixes the sources with
// recency decay, applies Dirichlet smoothing across the closed taxonomy,
// and returns signals sorted by descending share.
func (x *Extractor) ComputeIntentSignals(sources Sources, sinceDays float64) []Signal {
	orderIntents := x.ExtractFromOrders(sources.Orders)
	returnIntents := x.ExtractFromReturns(sources.Returns)
	behaviorIntents := x.ExtractFromBehavior(sources.Events)
	textIntents := x.ExtractFromText(sources.Texts)
	channelIntents := x.ExtractFromChannel(sources.Acquisitions)

	seen := map[Type]struct{}{}
	for _, m := range []map[Type]float64{orderIntents, returnIntents, behaviorIntents, textIntents, channelIntents} {
		for intent := range m {
			seen[intent] = struct{}{}
		}
	}

	timeWeight := x.computeTimeWeight(sinceDays)
	mixed := make(map[Type]float64, len(seen))
	for intent := range seen {
		score := x.weights.Cart*orderIntents[intent] +
			x.weights.Cart*returnIntents[intent]*0.5 +
			x.weights.Behavior*behaviorIntents[intent] +
			x.weights.Text*textIntents[intent] +
			x.weights.Channel*channelIntents[intent]
		mixed[intent] = score * timeWeight
	}

	smoothed := dirichletSmooth(mixed, len(AllTypes))
	confidence := computeConfidence(sources)
	method := fmt.Sprintf("mixed_weights:text=%.2f,behavior=%.2f,cart=%.2f,channel=%.2f",
		x.weights.Text, x.weights.Behavior, x.weights.Cart, x.weights.Channel)

	signals := make([]Signal, 0, len(smoothed))
	for intent, share := range smoothed {
		var evidence []string
		if v, ok := orderIntents[intent]; ok {
			evidence = append(evidence, fmt.Sprintf("orders:%.2f", v))
		}
		if v, ok := textIntents[intent]; ok {
			evidence = append(evidence, fmt.Sprintf("text:%.2f", v))
		}
		if v, ok := behaviorIntents[intent]; ok {
			evidence = append(evidence, fmt.Sprintf("behavior:%.2f", v))
		}

		signals = append(signals, Signal{
			Intent:      intent,
			Share:       share,
			Confidence:  confidence,
			Method:      method,
			Evidence:    evidence,
			LastUpdated: time.Now().UTC(),
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Share != signals[j].Share {
			return signals[i].Share > signals[j].Share
		}
		return signals[i].Intent < signals[j].Intent
	})

	return signals
}

func analyzeBundle(items []OrderItem) map[Type]float64 {
	bundle := map[Type]float64{}
	categories := make(map[string]bool, len(items))
	for _, item := range items {
		categories[item.Category] = true
	}

	if categories["running_shoes"] && categories["running_socks"] {
		bundle[Running] += 0.8
		bundle[Sport] += 0.5
	}
	if categories["dress_shoes"] && categories["dress_shirt"] {
		bundle[ProfessionalUse] += 0.7
	}
	return bundle
}

// isHolidaySeason flags Christmas, Valentine's, and Mother's/Father's Day
// windows as elevated gift-giving periods.
func isHolidaySeason(t time.Time) bool {
	month, day := int(t.Month()), t.Day()
	md := month*100 + day

	if md >= 1115 && md <= 1231 {
		return true
	}
	if md >= 201 && md <= 214 {
		return true
	}
	if (md >= 501 && md <= 531) || (md >= 601 && md <= 620) {
		return true
	}
	return false
}

func textWeight(t TextItem) float64 {
	weight := 1.0
	if t.VerifiedPurchase {
		weight *= 1.5
	}
	switch t.Source {
	case "support_ticket":
		weight *= 0.8
	case "q_and_a":
		weight *= 1.1
	}
	return weight
}

func (x *Extractor) computeTimeWeight(daysAgo float64) float64 {
	halfLife := x.halfLifeDays
	if halfLife <= 0 {
		halfLife = DefaultHalfLifeDays
	}
	return math.Exp(-daysAgo / halfLife)
}

// dirichletSmooth applies additive smoothing over scaled pseudo-counts,
// seeds every intent in the closed taxonomy absent from scores, and
// renormalizes to sum to 1.0.
func dirichletSmooth(scores map[Type]float64, numClasses int) map[Type]float64 {
	var total float64
	for _, v := range scores {
		total += v
	}

	smoothed := make(map[Type]float64, numClasses)
	denom := total*100 + float64(numClasses)*DirichletAlpha
	for intent, v := range scores {
		count := v * 100
		smoothed[intent] = (count + DirichletAlpha) / denom
	}
	for _, intent := range AllTypes {
		if _, ok := smoothed[intent]; !ok {
			smoothed[intent] = DirichletAlpha / denom
		}
	}

	var totalSmoothed float64
	for _, v := range smoothed {
		totalSmoothed += v
	}
	for intent := range smoothed {
		smoothed[intent] /= totalSmoothed
	}
	return smoothed
}

// computeConfidence scores data availability across sources with
// diminishing returns (log-scaled against a cap of 100 records per source).
func computeConfidence(sources Sources) float64 {
	weights := map[string]float64{
		"orders": 0.3, "events": 0.2, "texts": 0.3, "returns": 0.1, "acquisitions": 0.1,
	}
	counts := map[string]int{
		"orders": len(sources.Orders),
		"events": len(sources.Events),
		"texts": len(sources.Texts),
		"returns": len(sources.Returns),
		"acquisitions": len(sources.Acquisitions),
	}

	var confidence float64
	for source, weight := range weights {
		n := counts[source]
		if n > 0 {
			confidence += weight * math.Min(1.0, math.Log(float64(n)+1)/math.Log(100))
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
