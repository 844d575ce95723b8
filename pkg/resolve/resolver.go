// Package resolve answers point-in-time fact queries by combining a
// claim's stored truthRaw with a caller-supplied confidence slider (spec
// §4.7).
package resolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrAmbiguousInput is returned when a Query supplies more than one, or
// none, of its mutually exclusive lookup paths (spec §4.7 "Inputs").
var ErrAmbiguousInput = errors.New("resolve: exactly one lookup path must be supplied")

// StatusDisplay enumerates the resolved response's headline status (spec
// §4.7 step 5, computeDisplayStatus).
const (
	StatusUnknown      = "unknown"
	StatusResolved     = "resolved"
	StatusInsufficient = "insufficient"
	StatusDisputed     = "disputed"
)

// ModeLabel enumerates the slider-derived caller-facing label (spec §4.7
// step 6).
const (
	ModeConservative = "Conservative"
	ModeBalanced     = "Balanced"
	ModeAssertive    = "Assertive"
)

// Query is the FactResolver's input: exactly one of ClaimKeyHash,
// (EntityID, FieldName), or (EntityType, DomainID, FieldName) must be
// set (spec §4.7 "Inputs").
type Query struct {
	ClaimKeyHash []byte

	EntityID  string
	FieldName string

	EntityType string
	DomainID   string

	// TruthSlider is clamped to [0,1]; nil defaults to 0.5 (spec §4.7
	// "truthSlider ∈ [0,1] (default 0.5; clamped)").
	TruthSlider *float64
}

// Alternative is one claim in the resolved ConflictGroup, ordered by
// truthDisplay descending (spec §4.7 step 4).
type Alternative struct {
	Claim        *models.Claim
	Metrics      *models.TruthMetrics // nil if not yet scored
	TruthDisplay float64
	Evidence     []*store.EvidenceDetail
}

// Response is the FactResolver's full answer (spec §4.7 "Response").
type Response struct {
	ClaimKeyHash    []byte
	Slider          float64
	ModeLabel       string
	BestAnswer      *Alternative // nil if no alternative clears the display gates
	StatusDisplay   string
	ConflictPresent bool
	Alternatives    []*Alternative
	Metadata        Metadata
}

// Metadata carries display-friendly names alongside the raw response
// (spec §4.7 "Response": "entity/attribute names, scope, computedAt").
type Metadata struct {
	EntityID        string
	EntityName      string
	AttributeID     string
	AttributeName   string
	Scope           models.Scope
	ConflictGroupID string
}

// Resolver implements the FactResolver (spec §4.7).
type Resolver struct {
	store  store.Store
	policy *config.ResolverPolicy
}

// New builds a Resolver. A nil policy falls back to
// config.DefaultResolverPolicy.
func New(st store.Store, policy *config.ResolverPolicy) *Resolver {
	if policy == nil {
		policy = config.DefaultResolverPolicy()
	}
	return &Resolver{store: st, policy: policy}
}

// Resolve answers a single Query (spec §4.7 steps 1-6).
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Response, error) {
	slider := 0.5
	if q.TruthSlider != nil {
		slider = clamp01(*q.TruthSlider)
	}

	group, err := r.resolveGroup(ctx, q)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return &Response{
			Slider:        slider,
			ModeLabel:     modeLabel(slider),
			StatusDisplay: StatusUnknown,
		}, nil
	}

	claims, err := r.store.ListClaimsWithMetrics(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve: list claims with metrics: %w", err)
	}

	alternatives := make([]*Alternative, 0, len(claims))
	for _, c := range claims {
		evidence, err := r.store.ListEvidenceForClaim(ctx, c.Claim.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve: list evidence: %w", err)
		}
		var truthRaw float64
		if c.Metrics != nil {
			truthRaw = c.Metrics.TruthRaw
		}
		alternatives = append(alternatives, &Alternative{
			Claim:        c.Claim,
			Metrics:      c.Metrics,
			TruthDisplay: computeTruthDisplay(truthRaw, slider),
			Evidence:     evidence,
		})
	}

	sort.Slice(alternatives, func(i, j int) bool {
		return alternatives[i].TruthDisplay > alternatives[j].TruthDisplay
	})

	gates := r.policy.At(slider)
	best, status := selectBestAnswer(alternatives, gates)

	attr, err := r.store.GetAttributeByID(ctx, group.AttributeID)
	if err != nil {
		return nil, fmt.Errorf("resolve: get attribute: %w", err)
	}
	entity, err := r.store.GetEntity(ctx, group.EntityID)
	if err != nil {
		return nil, fmt.Errorf("resolve: get entity: %w", err)
	}

	return &Response{
		ClaimKeyHash:    group.ClaimKeyHash,
		Slider:          slider,
		ModeLabel:       modeLabel(slider),
		BestAnswer:      best,
		StatusDisplay:   status,
		ConflictPresent: group.ConflictPresent,
		Alternatives:    alternatives,
		Metadata: Metadata{
			EntityID:        entity.ID,
			EntityName:      entity.CanonicalName,
			AttributeID:     attr.ID,
			AttributeName:   attr.CanonicalName,
			Scope:           group.Scope,
			ConflictGroupID: group.ID,
		},
	}, nil
}

// resolveGroup implements the three mutually exclusive lookup paths
// (spec §4.7 "Inputs"), returning nil (no error) when nothing resolves.
func (r *Resolver) resolveGroup(ctx context.Context, q Query) (*models.ConflictGroup, error) {
	paths := 0
	if len(q.ClaimKeyHash) > 0 {
		paths++
	}
	if q.EntityID != "" && q.FieldName != "" {
		paths++
	}
	if q.EntityType != "" && q.DomainID != "" && q.FieldName != "" {
		paths++
	}
	if paths != 1 {
		return nil, ErrAmbiguousInput
	}

	hash := q.ClaimKeyHash
	if len(hash) == 0 {
		entityID := q.EntityID
		if entityID == "" {
			entity, err := r.store.FindEntityByDomainID(ctx, q.EntityType, q.DomainID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("resolve: find entity by domain id: %w", err)
			}
			entityID = entity.ID
		}

		link, err := r.store.GetFieldLink(ctx, entityID, q.FieldName)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve: get field link: %w", err)
		}
		hash = link.ClaimKeyHash
	}

	group, err := r.store.GetConflictGroupByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve: get conflict group: %w", err)
	}
	return group, nil
}

// computeTruthDisplay implements spec §9 Open Question 5 (pinned in
// SPEC_FULL.md §C.5): linear interpolation between a conservative
// transform (pulls truthRaw down, pow 1.5) and an assertive transform
// (pulls truthRaw up, sqrt), parameterized by slider. Both transforms are
// monotone non-decreasing in truthRaw and agree with it at the domain's
// fixed points (0 and 1), so the interpolation is monotone non-decreasing
// in both truthRaw and slider, and is approximately the identity at
// slider=0.5.
func computeTruthDisplay(truthRaw, slider float64) float64 {
	t := clamp01(truthRaw)
	conservative := math.Pow(t, 1.5)
	assertive := math.Sqrt(t)
	return conservative + (assertive-conservative)*clamp01(slider)
}

// selectBestAnswer applies the slider-interpolated display gates (spec
// §4.7 step 5) to the best-ranked alternative.
func selectBestAnswer(alternatives []*Alternative, gates config.DisplayPolicyPoint) (*Alternative, string) {
	if len(alternatives) == 0 {
		return nil, StatusUnknown
	}
	best := alternatives[0]

	independentSources := 0
	contradiction := 0.0
	if best.Metrics != nil {
		independentSources = best.Metrics.IndependentSources
		contradiction = best.Metrics.ContradictionScore
	}

	if best.TruthDisplay < gates.MinTruth {
		return nil, StatusInsufficient
	}
	if independentSources < gates.MinIndependentSources {
		return nil, StatusInsufficient
	}
	if contradiction > gates.MaxAllowedContradiction {
		return nil, StatusDisputed
	}
	if len(alternatives) > 1 {
		second := alternatives[1]
		if best.TruthDisplay-second.TruthDisplay < gates.TieMargin {
			return nil, StatusDisputed
		}
	}
	return best, StatusResolved
}

func modeLabel(slider float64) string {
	switch {
	case slider < 0.33:
		return ModeConservative
	case slider < 0.67:
		return ModeBalanced
	default:
		return ModeAssertive
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
