// Package evidence defines the canonical envelope for any third-party datum
// ingested by the trust engine, plus the deterministic hashing routine every
// other package routes through for VC issuance and snapshot comparison.
package evidence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Entity identifies the scope an Evidence record describes.
type Entity string

const (
	EntityBrand   Entity = "brand"
	EntityProduct Entity = "product"
)

// Evidence is the canonical envelope for one datum from one external source.
type Evidence struct {
	Source      string                 `json:"source"`
	Entity      Entity                 `json:"entity"`
	SourceID    string                 `json:"source_id"`
	RetrievedAt time.Time              `json:"retrieved_at"`
	EvidenceURL string                 `json:"evidence_url"`
	Data        map[string]interface{} `json:"data"`
	Signature   string                 `json:"signature,omitempty"`
	TTLHours    float64                `json:"ttl_hours"`
}

// Clone returns a deep copy so callers never mutate the cache's owned copy.
func (e Evidence) Clone() Evidence {
	clone := e
	clone.Data = cloneValue(e.Data).(map[string]interface{})
	return clone
}

// Expired reports whether this Evidence has aged past its TTL as of now.
func (e Evidence) Expired(now time.Time) bool {
	if e.TTLHours <= 0 {
		return true
	}
	age := now.Sub(e.RetrievedAt).Hours()
	return age >= e.TTLHours
}

// Hash returns the SHA-256 hex digest of the canonical JSON form of data.
func Hash(data map[string]interface{}) (string, error) {
	canon, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize produces a stable JSON encoding: sorted object keys, no
// insignificant whitespace, and no trailing newline. Every hashing path in
// this module (Evidence content hashes, VC evidence_hash, snapshot hashes)
// routes through this single routine so two structurally equal values always
// hash identically regardless of construction order.
func Canonicalize(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize round-trips through encoding/json to obtain a representation
// built entirely of maps, slices, and scalars, then sorts map keys so the
// subsequent Marshal call emits a deterministic key order.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: decode: %w", err)
	}
	return sortKeys(generic), nil
}

// sortKeys recursively rebuilds maps and slices from the decoded value. The
// rebuilt maps are plain map[string]interface{} values; the sorted key order
// of the canonical form comes from encoding/json, which marshals map keys
// in sorted order.
func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sortKeys(item)
		}
		return out
	default:
		return val
	}
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = cloneValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return val
	}
}
