package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/truthledger/truthledger/pkg/models"
)

// UpsertConflictGroup creates the bucket record for a claimKeyHash if
// absent; a conflicting insert is ignored, returning the existing row's
// id (spec §4.3 step 2, §3 "Created on first matching claim").
func (s *Postgres) UpsertConflictGroup(ctx context.Context, hash []byte, entityID, attributeID string, scope models.Scope) (string, error) {
	scopeJSON, err := marshalScope(scope)
	if err != nil {
		return "", err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO conflict_groups (claim_key_hash, entity_id, attribute_id, scope_json)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (claim_key_hash) DO UPDATE SET claim_key_hash = EXCLUDED.claim_key_hash
		RETURNING id`, hash, entityID, attributeID, scopeJSON)

	var id string
	if err := row.Scan(&id); err != nil {
		return "", wrapQuery("UpsertConflictGroup", err)
	}
	return id, nil
}

func (s *Postgres) GetConflictGroupByHash(ctx context.Context, hash []byte) (*models.ConflictGroup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, scope_json,
		       conflict_present, status_factual, claim_count, metadata, created_at, updated_at
		FROM conflict_groups WHERE claim_key_hash = $1`, hash)
	return scanConflictGroup(row)
}

func scanConflictGroup(row pgx.Row) (*models.ConflictGroup, error) {
	var g models.ConflictGroup
	var scopeJSON, metaJSON []byte
	err := row.Scan(&g.ID, &g.ClaimKeyHash, &g.EntityID, &g.AttributeID, &scopeJSON,
		&g.ConflictPresent, &g.StatusFactual, &g.ClaimCount, &metaJSON, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("scanConflictGroup", err)
	}
	if g.Scope, err = unmarshalScope(scopeJSON); err != nil {
		return nil, err
	}
	if g.Metadata, err = unmarshalMap(metaJSON); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Postgres) GetConflictGroup(ctx context.Context, id string) (*models.ConflictGroup, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, scope_json,
		       conflict_present, status_factual, claim_count, metadata, created_at, updated_at
		FROM conflict_groups WHERE id = $1`, id)
	return scanConflictGroup(row)
}

// ListConflictGroups is the admin CRUD browse over every group, newest
// first (spec §6 "CRUD over ... conflict groups").
func (s *Postgres) ListConflictGroups(ctx context.Context, limit int) ([]*models.ConflictGroup, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, scope_json,
		       conflict_present, status_factual, claim_count, metadata, created_at, updated_at
		FROM conflict_groups ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrapQuery("ListConflictGroups", err)
	}
	defer rows.Close()

	var out []*models.ConflictGroup
	for rows.Next() {
		g, err := scanConflictGroupRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateConflictGroupStatus updates a group's consistency classification
// and merges details into its metadata (spec §4.4 "Persistence").
func (s *Postgres) UpdateConflictGroupStatus(ctx context.Context, groupID string, conflictPresent bool, status string, details map[string]any) error {
	detailsJSON, err := marshalMap(details)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE conflict_groups
		SET conflict_present = $2,
		    status_factual = $3,
		    metadata = COALESCE(metadata, '{}'::jsonb) || $4::jsonb,
		    updated_at = now()
		WHERE id = $1`, groupID, conflictPresent, status, detailsJSON)
	return wrapQuery("UpdateConflictGroupStatus", err)
}

func (s *Postgres) IncrementConflictGroupClaimCount(ctx context.Context, groupID string, delta int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conflict_groups SET claim_count = claim_count + $2, updated_at = now()
		WHERE id = $1`, groupID, delta)
	return wrapQuery("IncrementConflictGroupClaimCount", err)
}

// ListConflictGroupsForDetection selects groups with claim_count > 0,
// scoped to statusFactual = unknown unless ForceRecheck (spec §4.4
// "Selection").
func (s *Postgres) ListConflictGroupsForDetection(ctx context.Context, filter ConflictFilter) ([]*models.ConflictGroup, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT id, claim_key_hash, entity_id, attribute_id, scope_json,
		       conflict_present, status_factual, claim_count, metadata, created_at, updated_at
		FROM conflict_groups
		WHERE claim_count > 0`
	if !filter.ForceRecheck {
		query += ` AND status_factual = 'unknown'`
	}
	query += ` ORDER BY updated_at ASC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapQuery("ListConflictGroupsForDetection", err)
	}
	defer rows.Close()

	var out []*models.ConflictGroup
	for rows.Next() {
		g, err := scanConflictGroupRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanConflictGroupRows(rows pgx.Rows) (*models.ConflictGroup, error) {
	var g models.ConflictGroup
	var scopeJSON, metaJSON []byte
	if err := rows.Scan(&g.ID, &g.ClaimKeyHash, &g.EntityID, &g.AttributeID, &scopeJSON,
		&g.ConflictPresent, &g.StatusFactual, &g.ClaimCount, &metaJSON, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, wrapQuery("scanConflictGroupRows", err)
	}
	var err error
	if g.Scope, err = unmarshalScope(scopeJSON); err != nil {
		return nil, err
	}
	if g.Metadata, err = unmarshalMap(metaJSON); err != nil {
		return nil, err
	}
	return &g, nil
}

// FindClaimByKeyAndValue looks up an existing claim sharing both the
// claimKeyHash and a value+type match, the reuse check in spec §4.3
// step 2 ("reuse if present").
func (s *Postgres) FindClaimByKeyAndValue(ctx context.Context, hash []byte, value models.ClaimValue) (*models.Claim, error) {
	valuePart, err := json.Marshal(map[string]any{"value": value.Value, "type": value.Type})
	if err != nil {
		return nil, fmt.Errorf("store: marshal value match: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, value_json, unit,
		       scope_json, valid_from, valid_to, is_derived, derived_from_claim_id, created_at, updated_at
		FROM claims
		WHERE claim_key_hash = $1 AND value_json @> $2::jsonb
		LIMIT 1`, hash, valuePart)
	return scanClaim(row)
}

// FindDerivedClaim looks up an existing derived claim for idempotent
// rederivation (spec §4.5 step 6).
func (s *Postgres) FindDerivedClaim(ctx context.Context, hash []byte, derivedFromClaimID string) (*models.Claim, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, value_json, unit,
		       scope_json, valid_from, valid_to, is_derived, derived_from_claim_id, created_at, updated_at
		FROM claims
		WHERE claim_key_hash = $1 AND derived_from_claim_id = $2
		LIMIT 1`, hash, derivedFromClaimID)
	return scanClaim(row)
}

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var c models.Claim
	var valueJSON, scopeJSON []byte
	err := row.Scan(&c.ID, &c.ClaimKeyHash, &c.EntityID, &c.AttributeID, &valueJSON, &c.Unit,
		&scopeJSON, &c.ValidFrom, &c.ValidTo, &c.IsDerived, &c.DerivedFromClaimID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("scanClaim", err)
	}
	if c.Value, err = unmarshalValue(valueJSON); err != nil {
		return nil, err
	}
	if c.Scope, err = unmarshalScope(scopeJSON); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) InsertClaim(ctx context.Context, claim *models.Claim) (string, error) {
	valueJSON, err := marshalValue(claim.Value)
	if err != nil {
		return "", err
	}
	scopeJSON, err := marshalScope(claim.Scope)
	if err != nil {
		return "", err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO claims
			(claim_key_hash, entity_id, attribute_id, value_json, unit, scope_json,
			 valid_from, valid_to, is_derived, derived_from_claim_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		claim.ClaimKeyHash, claim.EntityID, claim.AttributeID, valueJSON, claim.Unit, scopeJSON,
		claim.ValidFrom, claim.ValidTo, claim.IsDerived, claim.DerivedFromClaimID)

	var id string
	if err := row.Scan(&id); err != nil {
		return "", wrapQuery("InsertClaim", err)
	}
	return id, nil
}

// ListClaimDetailsForGroup loads every claim in a group along with its
// evidence count and the latest publishedAt among its supporting
// documents (spec §4.4 step 1).
func (s *Postgres) ListClaimDetailsForGroup(ctx context.Context, groupID string) ([]*ClaimDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.claim_key_hash, c.entity_id, c.attribute_id, c.value_json, c.unit,
		       c.scope_json, c.valid_from, c.valid_to, c.is_derived, c.derived_from_claim_id,
		       c.created_at, c.updated_at,
		       COUNT(e.id) AS evidence_count,
		       MAX(d.published_at) AS latest_published
		FROM claims c
		JOIN conflict_groups g ON g.claim_key_hash = c.claim_key_hash
		LEFT JOIN evidence e ON e.claim_id = c.id
		LEFT JOIN snippets sn ON sn.id = e.snippet_id
		LEFT JOIN documents d ON d.id = sn.document_id
		WHERE g.id = $1
		GROUP BY c.id`, groupID)
	if err != nil {
		return nil, wrapQuery("ListClaimDetailsForGroup", err)
	}
	defer rows.Close()

	var out []*ClaimDetail
	for rows.Next() {
		var c models.Claim
		var valueJSON, scopeJSON []byte
		var detail ClaimDetail
		if err := rows.Scan(&c.ID, &c.ClaimKeyHash, &c.EntityID, &c.AttributeID, &valueJSON, &c.Unit,
			&scopeJSON, &c.ValidFrom, &c.ValidTo, &c.IsDerived, &c.DerivedFromClaimID,
			&c.CreatedAt, &c.UpdatedAt, &detail.EvidenceCount, &detail.LatestPublished); err != nil {
			return nil, wrapQuery("ListClaimDetailsForGroup scan", err)
		}
		var err error
		if c.Value, err = unmarshalValue(valueJSON); err != nil {
			return nil, err
		}
		if c.Scope, err = unmarshalScope(scopeJSON); err != nil {
			return nil, err
		}
		detail.Claim = &c
		out = append(out, &detail)
	}
	return out, rows.Err()
}

// ListClaimsByAttribute returns claims for an attribute whose scope is a
// superset of scopeFilter (JSONB containment), the Deriver's source-claim
// lookup (spec §4.5 steps 1-3).
func (s *Postgres) ListClaimsByAttribute(ctx context.Context, attributeID string, scopeFilter models.Scope) ([]*models.Claim, error) {
	filterJSON, err := marshalScope(scopeFilter)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, claim_key_hash, entity_id, attribute_id, value_json, unit,
		       scope_json, valid_from, valid_to, is_derived, derived_from_claim_id, created_at, updated_at
		FROM claims
		WHERE attribute_id = $1 AND scope_json @> $2::jsonb AND is_derived = false`,
		attributeID, filterJSON)
	if err != nil {
		return nil, wrapQuery("ListClaimsByAttribute", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		var c models.Claim
		var valueJSON, scopeJSON []byte
		if err := rows.Scan(&c.ID, &c.ClaimKeyHash, &c.EntityID, &c.AttributeID, &valueJSON, &c.Unit,
			&scopeJSON, &c.ValidFrom, &c.ValidTo, &c.IsDerived, &c.DerivedFromClaimID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrapQuery("ListClaimsByAttribute scan", err)
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
