package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/truthledger/truthledger/pkg/models"
)

// CreateSyncStatus starts a new job run. The partial unique index on
// (sync_type) WHERE state='running' enforces the at-most-one-running
// invariant (spec §4.8, §5); a violation surfaces as ErrAlreadyRunning.
// metadata carries the orchestrator's runId and triggeredBy.
func (s *Postgres) CreateSyncStatus(ctx context.Context, syncType string, metadata map[string]any, now time.Time) (*models.SyncStatus, error) {
	metaJSON, err := marshalMap(metadata)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO sync_status (sync_type, state, started_at, metadata)
		VALUES ($1, 'running', $2, $3)
		RETURNING id, sync_type, state, started_at, completed_at, records_synced, error_message, metadata`,
		syncType, now, metaJSON)

	status, err := scanSyncStatus(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrAlreadyRunning
	}
	return status, err
}

func (s *Postgres) CompleteSyncStatus(ctx context.Context, id, state string, recordsSynced int, errMsg string, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_status
		SET state = $2, completed_at = $3, records_synced = $4, error_message = $5
		WHERE id = $1`, id, state, now, recordsSynced, errMsg)
	return wrapQuery("CompleteSyncStatus", err)
}

func (s *Postgres) GetRunningSyncStatus(ctx context.Context, syncType string) (*models.SyncStatus, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, sync_type, state, started_at, completed_at, records_synced, error_message, metadata
		FROM sync_status WHERE sync_type = $1 AND state = 'running'`, syncType)
	return scanSyncStatus(row)
}

func (s *Postgres) ListSyncHistory(ctx context.Context, syncType string, limit int) ([]*models.SyncStatus, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, sync_type, state, started_at, completed_at, records_synced, error_message, metadata
		FROM sync_status
		WHERE ($1 = '' OR sync_type = $1)
		ORDER BY started_at DESC
		LIMIT $2`, syncType, limit)
	if err != nil {
		return nil, wrapQuery("ListSyncHistory", err)
	}
	defer rows.Close()

	var out []*models.SyncStatus
	for rows.Next() {
		st, err := scanSyncStatusRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListStuckRunningSyncs returns running jobs whose startedAt predates
// now-olderThan, the StuckJobReaper's selection (spec §4.8 "stuck-job
// reaping on a timer").
func (s *Postgres) ListStuckRunningSyncs(ctx context.Context, olderThan time.Duration, now time.Time) ([]*models.SyncStatus, error) {
	cutoff := now.Add(-olderThan)
	rows, err := s.pool.Query(ctx, `
		SELECT id, sync_type, state, started_at, completed_at, records_synced, error_message, metadata
		FROM sync_status
		WHERE state = 'running' AND started_at < $1`, cutoff)
	if err != nil {
		return nil, wrapQuery("ListStuckRunningSyncs", err)
	}
	defer rows.Close()

	var out []*models.SyncStatus
	for rows.Next() {
		st, err := scanSyncStatusRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanSyncStatus(row pgx.Row) (*models.SyncStatus, error) {
	var st models.SyncStatus
	var metaJSON []byte
	err := row.Scan(&st.ID, &st.SyncType, &st.State, &st.StartedAt, &st.CompletedAt,
		&st.RecordsSynced, &st.ErrorMessage, &metaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("scanSyncStatus", err)
	}
	if st.Metadata, err = unmarshalMap(metaJSON); err != nil {
		return nil, err
	}
	return &st, nil
}

func scanSyncStatusRows(rows pgx.Rows) (*models.SyncStatus, error) {
	var st models.SyncStatus
	var metaJSON []byte
	if err := rows.Scan(&st.ID, &st.SyncType, &st.State, &st.StartedAt, &st.CompletedAt,
		&st.RecordsSynced, &st.ErrorMessage, &metaJSON); err != nil {
		return nil, wrapQuery("scanSyncStatusRows", err)
	}
	meta, err := unmarshalMap(metaJSON)
	if err != nil {
		return nil, err
	}
	st.Metadata = meta
	return &st, nil
}
