package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/truthledger/truthledger/pkg/models"
)

// ListClaimsNeedingScore selects claims without TruthMetrics, or whose
// metrics predate the claim's last update, ordered by createdAt ascending
// (spec §4.6 "Selection").
func (s *Postgres) ListClaimsNeedingScore(ctx context.Context, filter ScoreFilter) ([]*models.Claim, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT c.id, c.claim_key_hash, c.entity_id, c.attribute_id, c.value_json, c.unit,
		       c.scope_json, c.valid_from, c.valid_to, c.is_derived, c.derived_from_claim_id,
		       c.created_at, c.updated_at
		FROM claims c
		LEFT JOIN truth_metrics tm ON tm.claim_id = c.id
		WHERE 1=1`)

	args := []any{}
	argn := 1
	add := func(clause string, val any) {
		args = append(args, val)
		query.WriteString(fmt.Sprintf(" AND %s($%d)", clause, argn))
		argn++
	}

	if !filter.ForceRescore {
		query.WriteString(" AND (tm.claim_id IS NULL OR tm.computed_at < c.updated_at)")
	}
	if len(filter.ClaimIDs) > 0 {
		add("c.id = ANY", filter.ClaimIDs)
	}
	if len(filter.ConflictGroupIDs) > 0 {
		query.WriteString(fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM conflict_groups g
			WHERE g.claim_key_hash = c.claim_key_hash AND g.id = ANY($%d))`, argn))
		args = append(args, filter.ConflictGroupIDs)
		argn++
	}
	if len(filter.EntityIDs) > 0 {
		add("c.entity_id = ANY", filter.EntityIDs)
	}

	query.WriteString(fmt.Sprintf(" ORDER BY c.created_at ASC LIMIT $%d", argn))
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, wrapQuery("ListClaimsNeedingScore", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		var c models.Claim
		var valueJSON, scopeJSON []byte
		if err := rows.Scan(&c.ID, &c.ClaimKeyHash, &c.EntityID, &c.AttributeID, &valueJSON, &c.Unit,
			&scopeJSON, &c.ValidFrom, &c.ValidTo, &c.IsDerived, &c.DerivedFromClaimID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrapQuery("ListClaimsNeedingScore scan", err)
		}
		var err error
		if c.Value, err = unmarshalValue(valueJSON); err != nil {
			return nil, err
		}
		if c.Scope, err = unmarshalScope(scopeJSON); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// UpsertTruthMetrics stores the scorer's per-claim output (spec §4.6).
func (s *Postgres) UpsertTruthMetrics(ctx context.Context, tm *models.TruthMetrics) error {
	factorsJSON, err := marshalMap(tm.Factors)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO truth_metrics
			(claim_id, conflict_group_id, truth_raw, support_score, contradiction_score,
			 independent_sources, recency_score, specificity_score, factors_json, computed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (claim_id) DO UPDATE SET
			conflict_group_id = EXCLUDED.conflict_group_id,
			truth_raw = EXCLUDED.truth_raw,
			support_score = EXCLUDED.support_score,
			contradiction_score = EXCLUDED.contradiction_score,
			independent_sources = EXCLUDED.independent_sources,
			recency_score = EXCLUDED.recency_score,
			specificity_score = EXCLUDED.specificity_score,
			factors_json = EXCLUDED.factors_json,
			computed_at = EXCLUDED.computed_at`,
		tm.ClaimID, tm.ConflictGroupID, tm.TruthRaw, tm.SupportScore, tm.ContradictionScore,
		tm.IndependentSources, tm.RecencyScore, tm.SpecificityScore, factorsJSON, tm.ComputedAt)
	return wrapQuery("UpsertTruthMetrics", err)
}

func (s *Postgres) GetTruthMetrics(ctx context.Context, claimID string) (*models.TruthMetrics, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT claim_id, conflict_group_id, truth_raw, support_score, contradiction_score,
		       independent_sources, recency_score, specificity_score, factors_json, computed_at
		FROM truth_metrics WHERE claim_id = $1`, claimID)
	return scanTruthMetrics(row)
}

func scanTruthMetrics(row pgx.Row) (*models.TruthMetrics, error) {
	var tm models.TruthMetrics
	var factorsJSON []byte
	err := row.Scan(&tm.ClaimID, &tm.ConflictGroupID, &tm.TruthRaw, &tm.SupportScore, &tm.ContradictionScore,
		&tm.IndependentSources, &tm.RecencyScore, &tm.SpecificityScore, &factorsJSON, &tm.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("scanTruthMetrics", err)
	}
	if tm.Factors, err = unmarshalMap(factorsJSON); err != nil {
		return nil, err
	}
	return &tm, nil
}

// ListClaimsWithMetrics loads every claim in a group with its (possibly
// absent) TruthMetrics, the FactResolver's alternative set (spec §4.7
// step 2).
func (s *Postgres) ListClaimsWithMetrics(ctx context.Context, groupID string) ([]*ClaimWithMetrics, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.claim_key_hash, c.entity_id, c.attribute_id, c.value_json, c.unit,
		       c.scope_json, c.valid_from, c.valid_to, c.is_derived, c.derived_from_claim_id,
		       c.created_at, c.updated_at,
		       tm.claim_id, tm.conflict_group_id, tm.truth_raw, tm.support_score, tm.contradiction_score,
		       tm.independent_sources, tm.recency_score, tm.specificity_score, tm.factors_json, tm.computed_at
		FROM claims c
		JOIN conflict_groups g ON g.claim_key_hash = c.claim_key_hash
		LEFT JOIN truth_metrics tm ON tm.claim_id = c.id
		WHERE g.id = $1`, groupID)
	if err != nil {
		return nil, wrapQuery("ListClaimsWithMetrics", err)
	}
	defer rows.Close()

	var out []*ClaimWithMetrics
	for rows.Next() {
		var c models.Claim
		var valueJSON, scopeJSON []byte
		var metricsClaimID, metricsGroupID *string
		var truthRaw, support, contradiction, recency, specificity *float64
		var independentSources *int
		var factorsJSON []byte
		var computedAt *time.Time

		if err := rows.Scan(&c.ID, &c.ClaimKeyHash, &c.EntityID, &c.AttributeID, &valueJSON, &c.Unit,
			&scopeJSON, &c.ValidFrom, &c.ValidTo, &c.IsDerived, &c.DerivedFromClaimID, &c.CreatedAt, &c.UpdatedAt,
			&metricsClaimID, &metricsGroupID, &truthRaw, &support, &contradiction,
			&independentSources, &recency, &specificity, &factorsJSON, &computedAt); err != nil {
			return nil, wrapQuery("ListClaimsWithMetrics scan", err)
		}

		var err error
		if c.Value, err = unmarshalValue(valueJSON); err != nil {
			return nil, err
		}
		if c.Scope, err = unmarshalScope(scopeJSON); err != nil {
			return nil, err
		}

		entry := &ClaimWithMetrics{Claim: &c}
		if metricsClaimID != nil {
			factors, err := unmarshalMap(factorsJSON)
			if err != nil {
				return nil, err
			}
			entry.Metrics = &models.TruthMetrics{
				ClaimID:            *metricsClaimID,
				ConflictGroupID:    *metricsGroupID,
				TruthRaw:           *truthRaw,
				SupportScore:       *support,
				ContradictionScore: *contradiction,
				IndependentSources: *independentSources,
				RecencyScore:       *recency,
				SpecificityScore:   *specificity,
				Factors:            factors,
			}
			if computedAt != nil {
				entry.Metrics.ComputedAt = *computedAt
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
