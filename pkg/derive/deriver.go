// Package derive elects the best raw claim for each (entity, domain
// field) pair and materializes a derived Claim + FieldLink in the
// normalized domain_default_v1 scope (spec §4.5).
package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/truthledger/truthledger/pkg/claimkey"
	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrCancelled is returned when checkCancelled signals abort mid-run.
var ErrCancelled = errors.New("derive: cancelled")

// ProgressFunc reports deriver progress, every 5 entities (spec §4.5
// "Per-entity pass (cancellable, progress every 5 entities)").
type ProgressFunc func(current, total int, message string)

// Result is the deriveClaims(config) → DeriveResult contract.
type Result struct {
	EntitiesProcessed int
	ClaimsDerived     int
	ClaimsReused      int
	FieldLinksCreated int
	FieldLinksUpdated int
}

// Deriver runs the registered derivation rules over every entity (spec
// §4.5).
type Deriver struct {
	store    store.Store
	registry *config.DerivationRuleRegistry
	logger   *slog.Logger
}

func New(st store.Store, registry *config.DerivationRuleRegistry, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{store: st, registry: registry, logger: logger}
}

// Run implements the per-entity derivation pass (spec §4.5 steps 1-7).
func (dv *Deriver) Run(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (*Result, error) {
	entities, err := dv.store.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive: list entities: %w", err)
	}
	attributes, err := dv.store.ListAttributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive: list attributes: %w", err)
	}
	attrByName := make(map[string]*models.Attribute, len(attributes))
	for _, a := range attributes {
		attrByName[a.CanonicalName] = a
	}

	// stable, reproducible ordering by canonical name (spec §5 "Ordering
	// guarantees": "across stages ... by canonical name (deriver)").
	sort.Slice(entities, func(i, j int) bool { return entities[i].CanonicalName < entities[j].CanonicalName })

	result := &Result{}
	total := len(entities)
	for i, entity := range entities {
		if checkCancelled != nil && checkCancelled() {
			return result, ErrCancelled
		}

		rules := dv.registry.ForEntityType(entity.EntityType)
		for _, rule := range rules {
			if err := dv.applyRule(ctx, entity, rule, attrByName, result); err != nil {
				dv.logger.Warn("derive: rule failed", "entity_id", entity.ID, "rule_id", rule.ID, "error", err)
			}
		}

		result.EntitiesProcessed++
		if onProgress != nil && (i+1)%5 == 0 {
			onProgress(i+1, total, fmt.Sprintf("derived %d/%d entities", i+1, total))
		}
	}
	if onProgress != nil {
		onProgress(total, total, "derivation complete")
	}
	return result, nil
}

// candidate pairs a raw claim with the truthRaw used to order and filter
// it (spec §4.5 step 2).
type candidate struct {
	claim    *models.Claim
	truthRaw *float64
}

func (dv *Deriver) applyRule(ctx context.Context, entity *models.Entity, rule *config.DerivationRuleConfig, attrByName map[string]*models.Attribute, result *Result) error {
	attr, ok := attrByName[rule.SourceAttribute]
	if !ok {
		return fmt.Errorf("unknown source attribute %q", rule.SourceAttribute)
	}

	scopeFilter := models.Scope{}
	for k, v := range rule.ScopeFilter {
		scopeFilter[k] = v
	}

	claims, err := dv.store.ListClaimsByAttribute(ctx, attr.ID, scopeFilter)
	if err != nil {
		return fmt.Errorf("list claims by attribute: %w", err)
	}

	var candidates []candidate
	for _, c := range claims {
		if c.EntityID != entity.ID {
			continue
		}
		tm, err := dv.store.GetTruthMetrics(ctx, c.ID)
		var truthRaw *float64
		switch {
		case err == nil:
			v := tm.TruthRaw
			truthRaw = &v
		case errors.Is(err, store.ErrNotFound):
			truthRaw = nil
		default:
			return fmt.Errorf("get truth metrics: %w", err)
		}
		if rule.MinTruthRaw != nil && truthRaw != nil && *truthRaw < *rule.MinTruthRaw {
			continue
		}
		candidates = append(candidates, candidate{claim: c, truthRaw: truthRaw})
	}
	if len(candidates) == 0 {
		return nil
	}

	// order by truthRaw DESC NULLS LAST, createdAt DESC (spec §4.5 step 2).
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.truthRaw == nil && b.truthRaw == nil {
			return a.claim.CreatedAt.After(b.claim.CreatedAt)
		}
		if a.truthRaw == nil {
			return false
		}
		if b.truthRaw == nil {
			return true
		}
		if *a.truthRaw != *b.truthRaw {
			return *a.truthRaw > *b.truthRaw
		}
		return a.claim.CreatedAt.After(b.claim.CreatedAt)
	})

	chosen, err := selectCandidate(candidates, rule.Aggregation)
	if err != nil {
		return fmt.Errorf("select candidate: %w", err)
	}

	domainScope := claimkey.DomainScope(rule.TargetField, chosen.Scope)
	canonicalScope, err := domainScope.Canonicalize()
	if err != nil {
		return fmt.Errorf("canonicalize domain scope: %w", err)
	}

	hash, err := claimkey.Compute(entity.ID, attr.ID, canonicalScope)
	if err != nil {
		return fmt.Errorf("compute domain claim key: %w", err)
	}

	groupID, err := dv.store.UpsertConflictGroup(ctx, hash, entity.ID, attr.ID, canonicalScope)
	if err != nil {
		return fmt.Errorf("upsert conflict group: %w", err)
	}

	existing, err := dv.store.FindDerivedClaim(ctx, hash, chosen.ID)
	var derivedID string
	switch {
	case err == nil:
		derivedID = existing.ID
		result.ClaimsReused++
	case errors.Is(err, store.ErrNotFound):
		derivedID, err = dv.store.InsertClaim(ctx, &models.Claim{
			ClaimKeyHash:       hash,
			EntityID:           entity.ID,
			AttributeID:        attr.ID,
			Value:              chosen.Value,
			Unit:               chosen.Unit,
			Scope:              canonicalScope,
			IsDerived:          true,
			DerivedFromClaimID: &chosen.ID,
		})
		if err != nil {
			return fmt.Errorf("insert derived claim: %w", err)
		}
		if err := dv.store.IncrementConflictGroupClaimCount(ctx, groupID, 1); err != nil {
			return fmt.Errorf("increment claim count: %w", err)
		}
		if _, err := dv.store.CopyEvidence(ctx, chosen.ID, derivedID); err != nil {
			return fmt.Errorf("copy evidence: %w", err)
		}
		result.ClaimsDerived++
	default:
		return fmt.Errorf("find derived claim: %w", err)
	}

	inserted, err := dv.store.UpsertFieldLink(ctx, entity.ID, rule.TargetField, hash, true)
	if err != nil {
		return fmt.Errorf("upsert field link: %w", err)
	}
	if inserted {
		result.FieldLinksCreated++
	} else {
		result.FieldLinksUpdated++
	}

	return nil
}

// selectCandidate implements spec §4.5 step 3's per-aggregation-type
// selection over the already-ordered candidate list.
func selectCandidate(candidates []candidate, agg config.AggregationType) (*models.Claim, error) {
	switch agg {
	case config.AggregationBestSupported:
		return candidates[0].claim, nil

	case config.AggregationLatest:
		latest := candidates[0].claim
		for _, c := range candidates[1:] {
			if c.claim.CreatedAt.After(latest.CreatedAt) {
				latest = c.claim
			}
		}
		return latest, nil

	case config.AggregationMax, config.AggregationMin:
		return extremeCandidate(candidates, agg == config.AggregationMax)

	case config.AggregationAverage:
		return averageCandidate(candidates)

	default:
		return nil, fmt.Errorf("unrecognized aggregation %q", agg)
	}
}

func extremeCandidate(candidates []candidate, wantMax bool) (*models.Claim, error) {
	best := candidates[0].claim
	bestVal, ok := toFloat(best.Value.Value)
	if !ok {
		return nil, fmt.Errorf("non-numeric value for max/min aggregation")
	}
	for _, c := range candidates[1:] {
		v, ok := toFloat(c.claim.Value.Value)
		if !ok {
			continue
		}
		if (wantMax && v > bestVal) || (!wantMax && v < bestVal) {
			best, bestVal = c.claim, v
		}
	}
	return best, nil
}

// averageCandidate builds a synthetic copy of the first candidate with
// its value replaced by the arithmetic mean (spec §4.5 step 3 "average").
func averageCandidate(candidates []candidate) (*models.Claim, error) {
	var sum float64
	var n int
	for _, c := range candidates {
		v, ok := toFloat(c.claim.Value.Value)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no numeric candidates for average aggregation")
	}
	mean := sum / float64(n)

	synthetic := *candidates[0].claim
	synthetic.Value = models.ClaimValue{Value: mean, Type: candidates[0].claim.Value.Type}
	return &synthetic, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
