package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/truthledger/truthledger/pkg/models"
)

// UpsertDocument inserts a document keyed on (sourceId, contentHash);
// re-ingesting identical content is a no-op (spec §4.1 "never mutated in
// place"). created is false when the content hash already existed.
func (s *Postgres) UpsertDocument(ctx context.Context, doc *models.Document) (string, bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents
			(source_id, url, title, doc_type, content_hash, raw_content,
			 published_at, retrieved_at, supersedes_document_id, version_label, feed_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (source_id, content_hash) DO NOTHING
		RETURNING id`,
		doc.SourceID, doc.URL, doc.Title, doc.DocType, doc.ContentHash, doc.RawContent,
		doc.PublishedAt, doc.RetrievedAt, doc.SupersedesDocumentID, doc.VersionLabel, doc.FeedURL)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.findDocumentByHash(ctx, doc.SourceID, doc.ContentHash)
		if getErr != nil {
			return "", false, getErr
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return "", false, wrapQuery("UpsertDocument", err)
	}
	return id, true, nil
}

func (s *Postgres) findDocumentByHash(ctx context.Context, sourceID, contentHash string) (*models.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, url, title, doc_type, content_hash, raw_content,
		       published_at, retrieved_at, supersedes_document_id, version_label, feed_url, created_at
		FROM documents WHERE source_id = $1 AND content_hash = $2`, sourceID, contentHash)
	return scanDocument(row)
}

// FindPredecessorDocument returns the most recently retrieved prior
// document for (sourceId, url), used to populate SupersedesDocumentID
// when content changes (spec §4.1).
func (s *Postgres) FindPredecessorDocument(ctx context.Context, sourceID, url string) (*models.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, url, title, doc_type, content_hash, raw_content,
		       published_at, retrieved_at, supersedes_document_id, version_label, feed_url, created_at
		FROM documents WHERE source_id = $1 AND url = $2
		ORDER BY retrieved_at DESC LIMIT 1`, sourceID, url)
	doc, err := scanDocument(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.SourceID, &d.URL, &d.Title, &d.DocType, &d.ContentHash,
		&d.RawContent, &d.PublishedAt, &d.RetrievedAt, &d.SupersedesDocumentID,
		&d.VersionLabel, &d.FeedURL, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("scanDocument", err)
	}
	return &d, nil
}

// InsertSnippet inserts a snippet keyed on (documentId, snippetHash);
// duplicates are ignored (spec §4.1).
func (s *Postgres) InsertSnippet(ctx context.Context, snip *models.Snippet) (string, bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO snippets (document_id, locator, text, snippet_hash, snippet_type)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (document_id, snippet_hash) DO NOTHING
		RETURNING id`, snip.DocumentID, snip.Locator, snip.Text, snip.SnippetHash, snip.SnippetType)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		existing := s.pool.QueryRow(ctx, `
			SELECT id FROM snippets WHERE document_id = $1 AND snippet_hash = $2`,
			snip.DocumentID, snip.SnippetHash)
		if scanErr := existing.Scan(&id); scanErr != nil {
			return "", false, wrapQuery("InsertSnippet lookup", scanErr)
		}
		return id, false, nil
	}
	if err != nil {
		return "", false, wrapQuery("InsertSnippet", err)
	}
	return id, true, nil
}

// ListUnprocessedSnippets returns snippets with no Evidence row yet,
// the Extractor's work queue (spec §4.3).
func (s *Postgres) ListUnprocessedSnippets(ctx context.Context, limit int) ([]*models.Snippet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.document_id, s.locator, s.text, s.snippet_hash, s.snippet_type, s.created_at
		FROM snippets s
		WHERE NOT EXISTS (SELECT 1 FROM evidence e WHERE e.snippet_id = s.id)
		ORDER BY s.created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, wrapQuery("ListUnprocessedSnippets", err)
	}
	defer rows.Close()

	var out []*models.Snippet
	for rows.Next() {
		var snip models.Snippet
		if err := rows.Scan(&snip.ID, &snip.DocumentID, &snip.Locator, &snip.Text,
			&snip.SnippetHash, &snip.SnippetType, &snip.CreatedAt); err != nil {
			return nil, wrapQuery("ListUnprocessedSnippets scan", err)
		}
		out = append(out, &snip)
	}
	return out, rows.Err()
}
