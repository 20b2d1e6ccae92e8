package cache

import (
	"testing"
	"time"

	"github.com/axp-project/trust-engine/internal/evidence"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(10)
	key := Key{Provider: "trustpilot", Entity: evidence.EntityBrand, ID: "acme"}

	ev := evidence.Evidence{
		Source:      "trustpilot",
		Entity:      evidence.EntityBrand,
		SourceID:    "trustpilot:brand:acme",
		RetrievedAt: time.Now(),
		Data:        map[string]interface{}{"avg_rating": 4.5},
		TTLHours:    24,
	}
	c.Put(key, ev)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit after put")
	}
	if got.Data["avg_rating"] != 4.5 {
		t.Errorf("unexpected data: %v", got.Data)
	}
}

func TestGetReturnsCloneNotAlias(t *testing.T) {
	c := New(10)
	key := Key{Provider: "p", Entity: evidence.EntityBrand, ID: "x"}
	c.Put(key, evidence.Evidence{Data: map[string]interface{}{"n": 1}})

	got, _ := c.Get(key)
	got.Data["n"] = 999

	got2, _ := c.Get(key)
	if got2.Data["n"] != 1 {
		t.Errorf("mutating a Get result leaked into the cache: %v", got2.Data["n"])
	}
}

func TestHistoryAccumulatesAndBounds(t *testing.T) {
	c := New(2)
	key := Key{Provider: "p", Entity: evidence.EntityBrand, ID: "x"}

	for i := 0; i < 5; i++ {
		c.Put(key, evidence.Evidence{Data: map[string]interface{}{"i": i}})
	}

	hist := c.History(key)
	if len(hist) != 2 {
		t.Fatalf("expected history bounded to 2 entries, got %d", len(hist))
	}
	if hist[len(hist)-1]["i"] != 4 {
		t.Errorf("expected most recent entry last, got %v", hist[len(hist)-1])
	}
}

func TestMissReturnsFalse(t *testing.T) {
	c := New(10)
	_, ok := c.Get(Key{Provider: "p", Entity: evidence.EntityBrand, ID: "nope"})
	if ok {
		t.Error("expected miss for unknown key")
	}
}
