package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/truthledger/truthledger/pkg/models"
)

func (s *Postgres) GetSource(ctx context.Context, id string) (*models.Source, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, source_type, base_trust, independence_cluster_id,
		       default_doc_type, is_active, tags, created_at, updated_at
		FROM sources WHERE id = $1`, id)

	var src models.Source
	err := row.Scan(&src.ID, &src.Name, &src.SourceType, &src.BaseTrust,
		&src.IndependenceClusterID, &src.DefaultDocType, &src.IsActive,
		&src.Tags, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetSource", err)
	}
	return &src, nil
}

func (s *Postgres) ListActiveSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source_type, base_trust, independence_cluster_id,
		       default_doc_type, is_active, tags, created_at, updated_at
		FROM sources WHERE is_active = true ORDER BY name`)
	if err != nil {
		return nil, wrapQuery("ListActiveSources", err)
	}
	defer rows.Close()

	var out []*models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.SourceType, &src.BaseTrust,
			&src.IndependenceClusterID, &src.DefaultDocType, &src.IsActive,
			&src.Tags, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, wrapQuery("ListActiveSources scan", err)
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

func (s *Postgres) ListDueFeeds(ctx context.Context, now time.Time) ([]*models.SourceFeed, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, feed_url, feed_type, refresh_interval_minutes,
		       max_items, is_active, last_fetched_at, last_error, error_count,
		       created_at, updated_at
		FROM source_feeds
		WHERE is_active = true
		  AND (last_fetched_at IS NULL
		       OR last_fetched_at + (refresh_interval_minutes || ' minutes')::interval < $1)
		ORDER BY last_fetched_at NULLS FIRST`, now)
	if err != nil {
		return nil, wrapQuery("ListDueFeeds", err)
	}
	defer rows.Close()

	var out []*models.SourceFeed
	for rows.Next() {
		var f models.SourceFeed
		if err := rows.Scan(&f.ID, &f.SourceID, &f.FeedURL, &f.FeedType,
			&f.RefreshIntervalMinutes, &f.MaxItems, &f.IsActive, &f.LastFetchedAt,
			&f.LastError, &f.ErrorCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, wrapQuery("ListDueFeeds scan", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Postgres) ListSourceURLs(ctx context.Context, sourceID string) ([]*models.SourceURL, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, url, is_active, last_fetched_at, created_at
		FROM source_urls WHERE source_id = $1 AND is_active = true`, sourceID)
	if err != nil {
		return nil, wrapQuery("ListSourceURLs", err)
	}
	defer rows.Close()

	var out []*models.SourceURL
	for rows.Next() {
		var u models.SourceURL
		if err := rows.Scan(&u.ID, &u.SourceID, &u.URL, &u.IsActive, &u.LastFetchedAt, &u.CreatedAt); err != nil {
			return nil, wrapQuery("ListSourceURLs scan", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// ListSources returns every Source regardless of IsActive, the admin
// CRUD listing (spec §6 "CRUD over ... sources").
func (s *Postgres) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source_type, base_trust, independence_cluster_id,
		       default_doc_type, is_active, tags, created_at, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, wrapQuery("ListSources", err)
	}
	defer rows.Close()

	var out []*models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.SourceType, &src.BaseTrust,
			&src.IndependenceClusterID, &src.DefaultDocType, &src.IsActive,
			&src.Tags, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, wrapQuery("ListSources scan", err)
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateSource(ctx context.Context, src *models.Source, now time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sources (name, source_type, base_trust, independence_cluster_id,
		                      default_doc_type, is_active, tags, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		RETURNING id`,
		src.Name, src.SourceType, src.BaseTrust, src.IndependenceClusterID,
		src.DefaultDocType, src.IsActive, src.Tags, now)

	var id string
	err := row.Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrConflict
	}
	if err != nil {
		return "", wrapQuery("CreateSource", err)
	}
	return id, nil
}

func (s *Postgres) UpdateSource(ctx context.Context, src *models.Source, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sources
		SET name = $2, source_type = $3, base_trust = $4, independence_cluster_id = $5,
		    default_doc_type = $6, is_active = $7, tags = $8, updated_at = $9
		WHERE id = $1`,
		src.ID, src.Name, src.SourceType, src.BaseTrust, src.IndependenceClusterID,
		src.DefaultDocType, src.IsActive, src.Tags, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	if err != nil {
		return wrapQuery("UpdateSource", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSource cascades to the source's feeds, URLs, and documents (spec
// §3 "Deleting a Source cascades").
func (s *Postgres) DeleteSource(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return wrapQuery("DeleteSource", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetSourceFeed(ctx context.Context, id string) (*models.SourceFeed, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, feed_url, feed_type, refresh_interval_minutes,
		       max_items, is_active, last_fetched_at, last_error, error_count,
		       created_at, updated_at
		FROM source_feeds WHERE id = $1`, id)

	var f models.SourceFeed
	err := row.Scan(&f.ID, &f.SourceID, &f.FeedURL, &f.FeedType,
		&f.RefreshIntervalMinutes, &f.MaxItems, &f.IsActive, &f.LastFetchedAt,
		&f.LastError, &f.ErrorCount, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetSourceFeed", err)
	}
	return &f, nil
}

func (s *Postgres) ListSourceFeeds(ctx context.Context, sourceID string) ([]*models.SourceFeed, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, feed_url, feed_type, refresh_interval_minutes,
		       max_items, is_active, last_fetched_at, last_error, error_count,
		       created_at, updated_at
		FROM source_feeds WHERE source_id = $1 ORDER BY feed_url`, sourceID)
	if err != nil {
		return nil, wrapQuery("ListSourceFeeds", err)
	}
	defer rows.Close()

	var out []*models.SourceFeed
	for rows.Next() {
		var f models.SourceFeed
		if err := rows.Scan(&f.ID, &f.SourceID, &f.FeedURL, &f.FeedType,
			&f.RefreshIntervalMinutes, &f.MaxItems, &f.IsActive, &f.LastFetchedAt,
			&f.LastError, &f.ErrorCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, wrapQuery("ListSourceFeeds scan", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateSourceFeed(ctx context.Context, f *models.SourceFeed, now time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO source_feeds (source_id, feed_url, feed_type, refresh_interval_minutes,
		                          max_items, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		RETURNING id`,
		f.SourceID, f.FeedURL, f.FeedType, f.RefreshIntervalMinutes, f.MaxItems, f.IsActive, now)

	var id string
	err := row.Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrConflict
	}
	if err != nil {
		return "", wrapQuery("CreateSourceFeed", err)
	}
	return id, nil
}

func (s *Postgres) UpdateSourceFeed(ctx context.Context, f *models.SourceFeed, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE source_feeds
		SET feed_url = $2, feed_type = $3, refresh_interval_minutes = $4,
		    max_items = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		f.ID, f.FeedURL, f.FeedType, f.RefreshIntervalMinutes, f.MaxItems, f.IsActive, now)
	if err != nil {
		return wrapQuery("UpdateSourceFeed", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteSourceFeed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM source_feeds WHERE id = $1`, id)
	if err != nil {
		return wrapQuery("DeleteSourceFeed", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateSourceURL(ctx context.Context, u *models.SourceURL, now time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO source_urls (source_id, url, is_active, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`, u.SourceID, u.URL, u.IsActive, now)

	var id string
	err := row.Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrConflict
	}
	if err != nil {
		return "", wrapQuery("CreateSourceURL", err)
	}
	return id, nil
}

func (s *Postgres) DeleteSourceURL(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM source_urls WHERE id = $1`, id)
	if err != nil {
		return wrapQuery("DeleteSourceURL", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) UpdateFeedFetchResult(ctx context.Context, feedID string, now time.Time, fetchErr string) error {
	var err error
	if fetchErr == "" {
		_, err = s.pool.Exec(ctx, `
			UPDATE source_feeds
			SET last_fetched_at = $2, last_error = '', error_count = 0, updated_at = $2
			WHERE id = $1`, feedID, now)
	} else {
		_, err = s.pool.Exec(ctx, `
			UPDATE source_feeds
			SET last_fetched_at = $2, last_error = $3, error_count = error_count + 1, updated_at = $2
			WHERE id = $1`, feedID, now, fetchErr)
	}
	return wrapQuery("UpdateFeedFetchResult", err)
}
