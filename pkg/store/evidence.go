package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/truthledger/truthledger/pkg/models"
)

// InsertEvidence inserts an (claimId, snippetId) evidence row; duplicates
// are silently suppressed by the unique constraint (spec §3 Evidence row,
// §4.3 step 2).
func (s *Postgres) InsertEvidence(ctx context.Context, ev *models.Evidence) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO evidence (claim_id, snippet_id, quote, stance, extraction_confidence)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (claim_id, snippet_id) DO NOTHING
		RETURNING id`, ev.ClaimID, ev.SnippetID, ev.Quote, ev.Stance, ev.ExtractionConfidence)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapQuery("InsertEvidence", err)
	}
	return true, nil
}

// CopyEvidence duplicates every evidence row from one claim to another,
// idempotent on (claimId, snippetId) (spec §4.5 step 6).
func (s *Postgres) CopyEvidence(ctx context.Context, fromClaimID, toClaimID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO evidence (claim_id, snippet_id, quote, stance, extraction_confidence)
		SELECT $2, snippet_id, quote, stance, extraction_confidence
		FROM evidence WHERE claim_id = $1
		ON CONFLICT (claim_id, snippet_id) DO NOTHING`, fromClaimID, toClaimID)
	if err != nil {
		return 0, wrapQuery("CopyEvidence", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListEvidenceForClaim loads every evidence row for a claim joined out to
// its snippet, document, and source (spec §4.6 step 1, §4.7 step 2),
// ordered by publishedAt descending with nulls last.
func (s *Postgres) ListEvidenceForClaim(ctx context.Context, claimID string) ([]*EvidenceDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.claim_id, e.snippet_id, e.quote, e.stance, e.extraction_confidence, e.created_at,
		       sn.locator, sn.text,
		       d.title, d.doc_type, d.published_at,
		       EXISTS (SELECT 1 FROM documents d2 WHERE d2.supersedes_document_id = d.id) AS superseded,
		       src.id, src.name, src.source_type, src.base_trust, src.independence_cluster_id
		FROM evidence e
		JOIN snippets sn ON sn.id = e.snippet_id
		JOIN documents d ON d.id = sn.document_id
		JOIN sources src ON src.id = d.source_id
		WHERE e.claim_id = $1
		ORDER BY d.published_at DESC NULLS LAST`, claimID)
	if err != nil {
		return nil, wrapQuery("ListEvidenceForClaim", err)
	}
	defer rows.Close()

	var out []*EvidenceDetail
	for rows.Next() {
		var ev models.Evidence
		var detail EvidenceDetail
		if err := rows.Scan(&ev.ID, &ev.ClaimID, &ev.SnippetID, &ev.Quote, &ev.Stance,
			&ev.ExtractionConfidence, &ev.CreatedAt,
			&detail.SnippetLocator, &detail.SnippetText,
			&detail.DocumentTitle, &detail.DocumentDocType, &detail.DocumentPublished,
			&detail.DocumentSuperseded,
			&detail.SourceID, &detail.SourceName, &detail.SourceType, &detail.SourceBaseTrust,
			&detail.SourceIndependenceClusterID); err != nil {
			return nil, wrapQuery("ListEvidenceForClaim scan", err)
		}
		detail.Evidence = &ev
		out = append(out, &detail)
	}
	return out, rows.Err()
}

// UpsertFieldLink inserts or updates the (entityId, fieldName) →
// claimKeyHash pointer, reporting whether the row was freshly inserted
// for the Deriver's insert-vs-update reporting (spec §4.5 step 7).
func (s *Postgres) UpsertFieldLink(ctx context.Context, entityID, fieldName string, hash []byte, autoUpdate bool) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO field_links (entity_id, field_name, claim_key_hash, auto_update)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (entity_id, field_name)
		DO UPDATE SET claim_key_hash = EXCLUDED.claim_key_hash, auto_update = EXCLUDED.auto_update, updated_at = now()
		RETURNING (xmax = 0) AS inserted`, entityID, fieldName, hash, autoUpdate)

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		return false, wrapQuery("UpsertFieldLink", err)
	}
	return inserted, nil
}

func (s *Postgres) GetFieldLink(ctx context.Context, entityID, fieldName string) (*models.FieldLink, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, entity_id, field_name, claim_key_hash, auto_update, created_at, updated_at
		FROM field_links WHERE entity_id = $1 AND field_name = $2`, entityID, fieldName)

	var fl models.FieldLink
	err := row.Scan(&fl.ID, &fl.EntityID, &fl.FieldName, &fl.ClaimKeyHash, &fl.AutoUpdate, &fl.CreatedAt, &fl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetFieldLink", err)
	}
	return &fl, nil
}

// InsertReviewQueueItem inserts a review item, suppressed by the partial
// unique index on (itemType, itemId) WHERE status='pending' (spec §3
// "No duplicate (itemType,itemId,pending) pairs").
func (s *Postgres) InsertReviewQueueItem(ctx context.Context, item *models.ReviewQueueItem) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO review_queue_items (item_type, item_id, reason, priority, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (item_type, item_id) WHERE status = 'pending' DO NOTHING
		RETURNING id`, item.ItemType, item.ItemID, item.Reason, item.Priority, item.Status, item.Notes)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapQuery("InsertReviewQueueItem", err)
	}
	return true, nil
}

func (s *Postgres) ListReviewQueueItems(ctx context.Context, status string, limit int) ([]*models.ReviewQueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_type, item_id, reason, priority, status, notes, resolved_at, resolved_by, created_at
		FROM review_queue_items
		WHERE ($1 = '' OR status = $1)
		ORDER BY priority DESC, created_at ASC
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, wrapQuery("ListReviewQueueItems", err)
	}
	defer rows.Close()

	var out []*models.ReviewQueueItem
	for rows.Next() {
		var item models.ReviewQueueItem
		if err := rows.Scan(&item.ID, &item.ItemType, &item.ItemID, &item.Reason, &item.Priority,
			&item.Status, &item.Notes, &item.ResolvedAt, &item.ResolvedBy, &item.CreatedAt); err != nil {
			return nil, wrapQuery("ListReviewQueueItems scan", err)
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *Postgres) ResolveReviewQueueItem(ctx context.Context, id, status, resolvedBy string, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE review_queue_items
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1`, id, status, resolvedBy, now)
	return wrapQuery("ResolveReviewQueueItem", err)
}
