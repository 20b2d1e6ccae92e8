// Package cache implements the orchestrator's Evidence cache: a TTL-keyed
// store scoped to a single orchestrator instance (never process-global),
// specialized to the (provider, entity, id) keying and history-retention
// the enrichment orchestrator requires.
package cache

import (
	"sync"

	"github.com/axp-project/trust-engine/internal/evidence"
)

// Key identifies one cached Evidence record.
type Key struct {
	Provider string
	Entity evidence.Entity
	ID string
}

// String renders the key for logging and as the single-flight group key.
func (k Key) String() string {
	return k.Provider + ":" + string(k.Entity) + ":" + k.ID
}

type entry struct {
	current evidence.Evidence
	history []map[string]interface{}
}

// Cache is the in-process default implementation of the orchestrator's
// get/put/history contract. External persistence is pluggable behind the
// same Store interface.
type Cache struct {
	mu sync.RWMutex
	entries map[Key]*entry
	maxHist int
}

// Store is the pluggable interface the orchestrator depends on:
// get(key) -> Evidence?, put(key, Evidence), history(key) -> list<data>.
type Store interface {
	Get(key Key) (evidence.Evidence, bool)
	Put(key Key, e evidence.Evidence)
	History(key Key) []map[string]interface{}
}

// New creates an empty cache. maxHistory bounds how many prior data
// snapshots are retained per key for anomaly comparison; 0 means unbounded.
func New(maxHistory int) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		maxHist: maxHistory,
	}
}

// Get returns a clone of the cached Evidence for key, if present.
// Freshness is left to the caller — Get returns whatever is stored
// regardless of TTL so the orchestrator can decide freshness itself.
func (c *Cache) Get(key Key) (evidence.Evidence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return evidence.Evidence{}, false
	}
	return e.current.Clone(), true
}

// Put stores ev under key and appends its data to the key's history.
func (c *Cache) Put(key Key, ev evidence.Evidence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.current = ev.Clone()
	e.history = append(e.history, cloneData(ev.Data))
	if c.maxHist > 0 && len(e.history) > c.maxHist {
		e.history = e.history[len(e.history)-c.maxHist:]
	}
}

// History returns the data snapshots recorded for key, oldest first,
// including the most recent Put.
func (c *Cache) History(key Key) []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || len(e.history) == 0 {
		return nil
	}
	out := make([]map[string]interface{}, len(e.history))
	copy(out, e.history)
	return out
}

// Size returns the number of distinct keys held.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}

func cloneData(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
