package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/truthledger/truthledger/pkg/models"
)

func (s *Postgres) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, canonical_name, entity_type, aliases, engine_id,
		       launch_vehicle_id, country_id, created_at, updated_at
		FROM entities ORDER BY canonical_name`)
	if err != nil {
		return nil, wrapQuery("ListEntities", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.Aliases,
			&e.EngineID, &e.LaunchVehicleID, &e.CountryID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, wrapQuery("ListEntities scan", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Postgres) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, canonical_name, entity_type, aliases, engine_id,
		       launch_vehicle_id, country_id, created_at, updated_at
		FROM entities WHERE id = $1`, id)

	var e models.Entity
	err := row.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.Aliases,
		&e.EngineID, &e.LaunchVehicleID, &e.CountryID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetEntity", err)
	}
	return &e, nil
}

// FindEntityByDomainID resolves an Entity via its cross-referenced domain
// identifier (engineId or launchVehicleId), used by FactResolver's
// entityType+domainId+fieldName lookup path (spec §4.7 "Input").
func (s *Postgres) FindEntityByDomainID(ctx context.Context, entityType, domainID string) (*models.Entity, error) {
	column := "engine_id"
	if entityType == models.EntityTypeLaunchVehicle {
		column = "launch_vehicle_id"
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, canonical_name, entity_type, aliases, engine_id,
		       launch_vehicle_id, country_id, created_at, updated_at
		FROM entities WHERE entity_type = $1 AND `+column+` = $2`, entityType, domainID)

	var e models.Entity
	err := row.Scan(&e.ID, &e.CanonicalName, &e.EntityType, &e.Aliases,
		&e.EngineID, &e.LaunchVehicleID, &e.CountryID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("FindEntityByDomainID", err)
	}
	return &e, nil
}

func (s *Postgres) CreateEntity(ctx context.Context, e *models.Entity, now time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO entities (canonical_name, entity_type, aliases, engine_id,
		                       launch_vehicle_id, country_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
		RETURNING id`,
		e.CanonicalName, e.EntityType, e.Aliases, e.EngineID, e.LaunchVehicleID, e.CountryID, now)

	var id string
	err := row.Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrConflict
	}
	if err != nil {
		return "", wrapQuery("CreateEntity", err)
	}
	return id, nil
}

func (s *Postgres) UpdateEntity(ctx context.Context, e *models.Entity, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE entities
		SET canonical_name = $2, entity_type = $3, aliases = $4, engine_id = $5,
		    launch_vehicle_id = $6, country_id = $7, updated_at = $8
		WHERE id = $1`,
		e.ID, e.CanonicalName, e.EntityType, e.Aliases, e.EngineID, e.LaunchVehicleID, e.CountryID, now)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	if err != nil {
		return wrapQuery("UpdateEntity", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteEntity(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return wrapQuery("DeleteEntity", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListAttributes(ctx context.Context) ([]*models.Attribute, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, canonical_name, value_type, unit, tolerance_abs, tolerance_rel, created_at
		FROM attributes ORDER BY canonical_name`)
	if err != nil {
		return nil, wrapQuery("ListAttributes", err)
	}
	defer rows.Close()

	var out []*models.Attribute
	for rows.Next() {
		var a models.Attribute
		if err := rows.Scan(&a.ID, &a.CanonicalName, &a.ValueType, &a.Unit,
			&a.ToleranceAbs, &a.ToleranceRel, &a.CreatedAt); err != nil {
			return nil, wrapQuery("ListAttributes scan", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Postgres) GetAttributeByName(ctx context.Context, canonicalName string) (*models.Attribute, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, canonical_name, value_type, unit, tolerance_abs, tolerance_rel, created_at
		FROM attributes WHERE canonical_name = $1`, canonicalName)

	var a models.Attribute
	err := row.Scan(&a.ID, &a.CanonicalName, &a.ValueType, &a.Unit, &a.ToleranceAbs, &a.ToleranceRel, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetAttributeByName", err)
	}
	return &a, nil
}

// GetAttributeByID resolves an Attribute by primary key, used by the
// FactResolver to label its response metadata (spec §4.7 "Response").
func (s *Postgres) GetAttributeByID(ctx context.Context, id string) (*models.Attribute, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, canonical_name, value_type, unit, tolerance_abs, tolerance_rel, created_at
		FROM attributes WHERE id = $1`, id)

	var a models.Attribute
	err := row.Scan(&a.ID, &a.CanonicalName, &a.ValueType, &a.Unit, &a.ToleranceAbs, &a.ToleranceRel, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapQuery("GetAttributeByID", err)
	}
	return &a, nil
}

func (s *Postgres) CreateAttribute(ctx context.Context, a *models.Attribute, now time.Time) (string, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO attributes (canonical_name, value_type, unit, tolerance_abs, tolerance_rel, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		a.CanonicalName, a.ValueType, a.Unit, a.ToleranceAbs, a.ToleranceRel, now)

	var id string
	err := row.Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrConflict
	}
	if err != nil {
		return "", wrapQuery("CreateAttribute", err)
	}
	return id, nil
}

func (s *Postgres) UpdateAttribute(ctx context.Context, a *models.Attribute) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE attributes
		SET canonical_name = $2, value_type = $3, unit = $4, tolerance_abs = $5, tolerance_rel = $6
		WHERE id = $1`,
		a.ID, a.CanonicalName, a.ValueType, a.Unit, a.ToleranceAbs, a.ToleranceRel)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	if err != nil {
		return wrapQuery("UpdateAttribute", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteAttribute(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attributes WHERE id = $1`, id)
	if err != nil {
		return wrapQuery("DeleteAttribute", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
