package intent

import (
	"testing"
	"time"
)

func TestExtractFromOrdersGiftWrapAndBundle(t *testing.T) {
	x := NewDefault()
	orders := []Order{
		{CreatedAt: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), GiftWrap: true},
		{
			CreatedAt: time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
			Items: []OrderItem{
				{Category: "running_shoes"},
				{Category: "running_socks"},
			},
		},
	}

	scores := x.ExtractFromOrders(orders)
	if scores[Gift] <= 0 {
		t.Errorf("expected positive gift score from gift-wrapped holiday order, got %v", scores[Gift])
	}
	if scores[Running] <= 0 {
		t.Errorf("expected positive running score from running bundle, got %v", scores[Running])
	}
}

func TestExtractFromOrdersEmptyReturnsEmptyMap(t *testing.T) {
	x := NewDefault()
	scores := x.ExtractFromOrders(nil)
	if len(scores) != 0 {
		t.Errorf("expected empty map for no orders, got %v", scores)
	}
}

func TestExtractFromReturnsSizeIssue(t *testing.T) {
	x := NewDefault()
	scores := x.ExtractFromReturns([]ReturnItem{{Reason: "size_issue"}})
	if scores[Fashion] != 0.1 || scores[Sport] != 0.1 {
		t.Errorf("unexpected size_issue adjustments: %v", scores)
	}
}

func TestExtractFromBehaviorRunningGuide(t *testing.T) {
	x := NewDefault()
	events := []Event{
		{Type: "read_guide", GuideType: "running_tips"},
	}
	scores := x.ExtractFromBehavior(events)
	if scores[Running] <= 0 {
		t.Errorf("expected positive running score from running guide read, got %v", scores[Running])
	}
}

func TestExtractFromTextKeywordMatch(t *testing.T) {
	x := NewDefault()
	texts := []TextItem{
		{Text: "Great running shoe for my daily training", VerifiedPurchase: true},
		{Text: "Bought as a gift for my husband", VerifiedPurchase: true},
	}
	scores := x.ExtractFromText(texts)
	if scores[Sport] <= 0 {
		t.Errorf("expected positive sport score, got %v", scores)
	}
	if scores[Gift] <= 0 {
		t.Errorf("expected positive gift score, got %v", scores)
	}
}

func TestExtractFromChannelCampaignMatch(t *testing.T) {
	x := NewDefault()
	scores := x.ExtractFromChannel([]Acquisition{
		{UTMCampaign: "sport_sale", UTMTerm: "running shoes"},
		{UTMCampaign: "holiday_gifts"},
	})
	if scores[Sport] <= 0 {
		t.Errorf("expected positive sport score from sport campaign, got %v", scores)
	}
	if scores[Gift] <= 0 {
		t.Errorf("expected positive gift score from holiday campaign, got %v", scores)
	}
}

// TestComputeIntentSignalsRunningShoeScenario mirrors the named scenario
// from the calibration set: a running-shoe product with gift, running, and
// sport signal across orders/events/text. It checks that shares sum to one,
// that sport or gift ranks first, and that each of the three outranks
// intents with no evidence.
func TestComputeIntentSignalsRunningShoeScenario(t *testing.T) {
	x := NewDefault()
	sources := Sources{
		Orders: []Order{
			{CreatedAt: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), GiftWrap: true},
			{
				CreatedAt: time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
				Items: []OrderItem{
					{Category: "running_shoes"},
					{Category: "running_socks"},
				},
			},
		},
		Returns: []ReturnItem{{Reason: "size_issue"}},
		Events: []Event{
			{Type: "view_size_guide"},
			{Type: "view_3d"},
			{Type: "read_guide", GuideType: "running_tips"},
		},
		Texts: []TextItem{
			{Text: "Great running shoe for my daily training", VerifiedPurchase: true, Source: "review"},
			{Text: "Bought as a gift for my husband", VerifiedPurchase: true, Source: "review"},
		},
		Acquisitions: []Acquisition{
			{UTMCampaign: "sport_sale", UTMSource: "google", UTMTerm: "running shoes"},
			{UTMCampaign: "holiday_gifts", UTMSource: "email", LandingPage: "/gifts"},
		},
	}

	signals := x.ComputeIntentSignals(sources, 30)
	if len(signals) != len(AllTypes) {
		t.Fatalf("expected one signal per taxonomy entry (%d), got %d", len(AllTypes), len(signals))
	}

	var total float64
	shareOf := make(map[Type]float64, len(signals))
	for _, s := range signals {
		total += s.Share
		shareOf[s.Intent] = s.Share
	}
	if diff := total - 1.0; diff < -1e-6 || diff > 1e-6 {
		t.Errorf("expected shares to sum to 1.0, got %v", total)
	}

	// sport and gift carry the strongest evidence across orders, behavior,
	// text, and channel; one of them should rank first.
	top := signals[0].Intent
	if top != Sport && top != Gift {
		t.Errorf("expected top signal to be sport or gift, got %s", top)
	}

	// gift, running and sport all have direct order/behavior/text/channel
	// evidence, so they should outrank intents with no evidence at all in
	// this scenario.
	for _, evidenced := range []Type{Gift, Running, Sport} {
		for _, unmentioned := range []Type{Basketball, Outdoor} {
			if shareOf[evidenced] <= shareOf[unmentioned] {
				t.Errorf("expected %s (%v) to outrank unmentioned %s (%v)", evidenced, shareOf[evidenced], unmentioned, shareOf[unmentioned])
			}
		}
	}
}

func TestComputeIntentSignalsEmptyInputStillSumsToOne(t *testing.T) {
	x := NewDefault()
	signals := x.ComputeIntentSignals(Sources{}, 365)
	if len(signals) != len(AllTypes) {
		t.Fatalf("expected %d signals from Dirichlet-seeded taxonomy, got %d", len(AllTypes), len(signals))
	}

	var total float64
	for _, s := range signals {
		total += s.Share
		if s.Confidence != 0 {
			t.Errorf("expected zero confidence with no data sources, got %v", s.Confidence)
		}
	}
	if diff := total - 1.0; diff < -1e-6 || diff > 1e-6 {
		t.Errorf("expected uniform smoothed shares to sum to 1.0, got %v", total)
	}

	expectedShare := 1.0 / float64(len(AllTypes))
	for _, s := range signals {
		if diff := s.Share - expectedShare; diff < -1e-9 || diff > 1e-9 {
			t.Errorf("expected uniform share %v for intent %s, got %v", expectedShare, s.Intent, s.Share)
		}
	}
}

func TestDirichletSmoothSeedsUnseenIntents(t *testing.T) {
	smoothed := dirichletSmooth(map[Type]float64{Gift: 0.5}, len(AllTypes))
	if len(smoothed) != len(AllTypes) {
		t.Fatalf("expected every taxonomy entry present, got %d", len(smoothed))
	}
	if smoothed[Gift] <= smoothed[Luxury] {
		t.Errorf("expected observed intent (gift) to outrank unseen intent (luxury): gift=%v luxury=%v", smoothed[Gift], smoothed[Luxury])
	}
}

func TestIsHolidaySeason(t *testing.T) {
	cases := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := isHolidaySeason(c.date); got != c.want {
			t.Errorf("isHolidaySeason(%v) = %v, want %v", c.date, got, c.want)
		}
	}
}
