// Package services is a thin validation/translation layer between the
// HTTP adapter and the Store, following the teacher's SessionService
// pattern: validate input, delegate to the store, translate store
// sentinel errors into the services package's own taxonomy.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// CatalogService manages the reference data every pipeline stage reads
// from: entities, attributes, sources, feeds, and fixed URLs.
type CatalogService struct {
	store store.Store
	now   func() time.Time
}

func NewCatalogService(st store.Store, now func() time.Time) *CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogService{store: st, now: now}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrAlreadyExists
	default:
		return err
	}
}

func (c *CatalogService) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	out, err := c.store.ListEntities(ctx)
	return out, translate(err)
}

func (c *CatalogService) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	e, err := c.store.GetEntity(ctx, id)
	return e, translate(err)
}

func (c *CatalogService) CreateEntity(ctx context.Context, e *models.Entity) (string, error) {
	if e.CanonicalName == "" {
		return "", NewValidationError("canonical_name", "required")
	}
	if e.EntityType != models.EntityTypeEngine && e.EntityType != models.EntityTypeLaunchVehicle {
		return "", NewValidationError("entity_type", "must be engine or launch_vehicle")
	}
	id, err := c.store.CreateEntity(ctx, e, c.now())
	return id, translate(err)
}

func (c *CatalogService) UpdateEntity(ctx context.Context, e *models.Entity) error {
	return translate(c.store.UpdateEntity(ctx, e, c.now()))
}

func (c *CatalogService) DeleteEntity(ctx context.Context, id string) error {
	return translate(c.store.DeleteEntity(ctx, id))
}

func (c *CatalogService) ListAttributes(ctx context.Context) ([]*models.Attribute, error) {
	out, err := c.store.ListAttributes(ctx)
	return out, translate(err)
}

func (c *CatalogService) GetAttribute(ctx context.Context, id string) (*models.Attribute, error) {
	a, err := c.store.GetAttributeByID(ctx, id)
	return a, translate(err)
}

func (c *CatalogService) CreateAttribute(ctx context.Context, a *models.Attribute) (string, error) {
	if a.CanonicalName == "" {
		return "", NewValidationError("canonical_name", "required")
	}
	if a.ToleranceRel == 0 {
		a.ToleranceRel = models.DefaultToleranceRel
	}
	id, err := c.store.CreateAttribute(ctx, a, c.now())
	return id, translate(err)
}

func (c *CatalogService) UpdateAttribute(ctx context.Context, a *models.Attribute) error {
	return translate(c.store.UpdateAttribute(ctx, a))
}

func (c *CatalogService) DeleteAttribute(ctx context.Context, id string) error {
	return translate(c.store.DeleteAttribute(ctx, id))
}

func (c *CatalogService) ListSources(ctx context.Context) ([]*models.Source, error) {
	out, err := c.store.ListSources(ctx)
	return out, translate(err)
}

func (c *CatalogService) GetSource(ctx context.Context, id string) (*models.Source, error) {
	s, err := c.store.GetSource(ctx, id)
	return s, translate(err)
}

func (c *CatalogService) CreateSource(ctx context.Context, src *models.Source) (string, error) {
	if src.Name == "" {
		return "", NewValidationError("name", "required")
	}
	if src.SourceType == "" {
		return "", NewValidationError("source_type", "required")
	}
	if src.BaseTrust < 0 || src.BaseTrust > 1 {
		return "", NewValidationError("base_trust", "must be within [0,1]")
	}
	id, err := c.store.CreateSource(ctx, src, c.now())
	return id, translate(err)
}

func (c *CatalogService) UpdateSource(ctx context.Context, src *models.Source) error {
	return translate(c.store.UpdateSource(ctx, src, c.now()))
}

func (c *CatalogService) DeleteSource(ctx context.Context, id string) error {
	return translate(c.store.DeleteSource(ctx, id))
}

func (c *CatalogService) ListSourceFeeds(ctx context.Context, sourceID string) ([]*models.SourceFeed, error) {
	out, err := c.store.ListSourceFeeds(ctx, sourceID)
	return out, translate(err)
}

func (c *CatalogService) CreateSourceFeed(ctx context.Context, f *models.SourceFeed) (string, error) {
	if f.SourceID == "" {
		return "", NewValidationError("source_id", "required")
	}
	if f.FeedURL == "" {
		return "", NewValidationError("feed_url", "required")
	}
	if f.RefreshIntervalMinutes <= 0 {
		f.RefreshIntervalMinutes = 60
	}
	id, err := c.store.CreateSourceFeed(ctx, f, c.now())
	return id, translate(err)
}

func (c *CatalogService) UpdateSourceFeed(ctx context.Context, f *models.SourceFeed) error {
	return translate(c.store.UpdateSourceFeed(ctx, f, c.now()))
}

func (c *CatalogService) DeleteSourceFeed(ctx context.Context, id string) error {
	return translate(c.store.DeleteSourceFeed(ctx, id))
}

func (c *CatalogService) ListSourceURLs(ctx context.Context, sourceID string) ([]*models.SourceURL, error) {
	out, err := c.store.ListSourceURLs(ctx, sourceID)
	return out, translate(err)
}

func (c *CatalogService) CreateSourceURL(ctx context.Context, u *models.SourceURL) (string, error) {
	if u.SourceID == "" {
		return "", NewValidationError("source_id", "required")
	}
	if u.URL == "" {
		return "", NewValidationError("url", "required")
	}
	id, err := c.store.CreateSourceURL(ctx, u, c.now())
	return id, translate(err)
}

func (c *CatalogService) DeleteSourceURL(ctx context.Context, id string) error {
	return translate(c.store.DeleteSourceURL(ctx, id))
}
