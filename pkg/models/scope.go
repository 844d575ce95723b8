// Package models defines the persistent entities of the truth ledger
// (spec §3): Source, SourceFeed, SourceUrl, Document, Snippet, Entity,
// Attribute, ConflictGroup, Claim, Evidence, TruthMetrics, FieldLink,
// ReviewQueueItem, and SyncStatus.
package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Scope is the canonicalized set of scope dimensions a Claim is valid
// under (altitude, throttle, orbit, profile, field, derived_from_scope,
// and any future fixed key names — spec §9's "dynamic scope objects"
// re-architecture). Values are always strings or numbers; canonicalize
// lowercases textual values and rejects NaN.
type Scope map[string]any

// Canonicalize returns a new Scope with sorted-iteration-stable,
// normalized values: textual values lowercased, null/empty keys dropped,
// numeric NaN rejected. Canonicalization is part of the claimKeyHash
// contract (spec §3) so it must be deterministic independent of map
// iteration order.
func (s Scope) Canonicalize() (Scope, error) {
	out := make(Scope, len(s))
	for k, v := range s {
		if k == "" || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = strings.ToLower(val)
		case float64:
			if math.IsNaN(val) {
				return nil, fmt.Errorf("scope key %q has NaN value", k)
			}
			out[k] = val
		case int:
			out[k] = float64(val)
		case bool:
			out[k] = val
		case Scope:
			nested, err := val.Canonicalize()
			if err != nil {
				return nil, fmt.Errorf("scope key %q: %w", k, err)
			}
			out[k] = nested
		case map[string]any:
			nested, err := Scope(val).Canonicalize()
			if err != nil {
				return nil, fmt.Errorf("scope key %q: %w", k, err)
			}
			out[k] = nested
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}

// SortedKeys returns the scope's keys in sorted order, the canonical
// iteration order required by the claim-key hash contract.
func (s Scope) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
