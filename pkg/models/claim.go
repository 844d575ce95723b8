package models

import "time"

// ClaimValue is the typed value of a Claim (spec §3): {value, type, confidence}.
type ClaimValue struct {
	Value      any     `json:"value"`
	Type       string  `json:"type"` // number|string|enum|bool
	Confidence float64 `json:"confidence,omitempty"`
}

// Claim is a specific value for an entity's attribute under a specific
// scope (spec §3, glossary). It is created by the Extractor or the
// Deriver and never updated except through rescore.
type Claim struct {
	ID                 string
	ClaimKeyHash       []byte // H(entityId, attributeId, canonicalize(scopeJson))
	EntityID           string
	AttributeID        string
	Value              ClaimValue
	Unit               string
	Scope              Scope
	ValidFrom          *time.Time
	ValidTo            *time.Time
	IsDerived          bool
	DerivedFromClaimID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ConflictGroup is the bucket record indexed by claimKeyHash: its claims
// are the competing values for the same fact (spec §3, glossary).
type ConflictGroup struct {
	ID              string
	ClaimKeyHash    []byte // unique
	EntityID        string
	AttributeID     string
	Scope           Scope
	ConflictPresent bool
	StatusFactual   string // unknown|no_conflict|resolved_by_versioning|active_conflict|needs_review
	ClaimCount      int
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusFactual enumerates the ConflictGroup's consistency classification
// (spec §4.4).
const (
	StatusUnknown              = "unknown"
	StatusNoConflict           = "no_conflict"
	StatusResolvedByVersioning = "resolved_by_versioning"
	StatusActiveConflict       = "active_conflict"
	StatusNeedsReview          = "needs_review"
)
