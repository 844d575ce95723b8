package models

import (
	"math"
	"strings"
	"time"
)

// Entity is a long-lived named thing in the domain — an engine or launch
// vehicle — with aliases and cross-references into other domain
// identifier spaces (spec §3).
type Entity struct {
	ID              string    `json:"id"`
	CanonicalName   string    `json:"canonical_name"` // unique
	EntityType      string    `json:"entity_type"`    // engine|launch_vehicle
	Aliases         []string  `json:"aliases,omitempty"`
	EngineID        string    `json:"engine_id,omitempty"`
	LaunchVehicleID string    `json:"launch_vehicle_id,omitempty"`
	CountryID       string    `json:"country_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntityType enumerates the recognized entity kinds.
const (
	EntityTypeEngine        = "engine"
	EntityTypeLaunchVehicle = "launch_vehicle"
)

// AliasMap returns a lowercased alias → Entity lookup for a set of
// entities, used by the Extractor's snippet-scanning pass (spec §4.3 step 1).
func AliasMap(entities []*Entity) map[string]*Entity {
	out := make(map[string]*Entity)
	for _, e := range entities {
		out[strings.ToLower(e.CanonicalName)] = e
		for _, a := range e.Aliases {
			out[strings.ToLower(a)] = e
		}
	}
	return out
}

// Attribute is a named typed field (spec §3), e.g. "engines.isp_s".
type Attribute struct {
	ID            string    `json:"id"`
	CanonicalName string    `json:"canonical_name"` // unique
	ValueType     string    `json:"value_type"`     // number|string|enum|bool
	Unit          string    `json:"unit,omitempty"`
	ToleranceAbs  *float64  `json:"tolerance_abs,omitempty"`
	ToleranceRel  float64   `json:"tolerance_rel"` // default 0.02, ∈ [0,1]
	CreatedAt     time.Time `json:"created_at"`
}

// DefaultToleranceRel is applied when an Attribute is created without an
// explicit relative tolerance (spec §3).
const DefaultToleranceRel = 0.02

// WithinTolerance reports whether two numeric values are considered equal
// under this attribute's tolerance (spec §4.4 step 3):
// |a-b| ≤ max(toleranceAbs ?? 0, toleranceRel · max(|a|,|b|)).
func (a *Attribute) WithinTolerance(x, y float64) bool {
	absTol := 0.0
	if a.ToleranceAbs != nil {
		absTol = *a.ToleranceAbs
	}
	relTol := a.ToleranceRel
	if relTol == 0 {
		relTol = DefaultToleranceRel
	}
	threshold := math.Max(absTol, relTol*math.Max(math.Abs(x), math.Abs(y)))
	return math.Abs(x-y) <= threshold
}
