package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

type fakeCatalogStore struct {
	store.Store
	createdEntity   *models.Entity
	createdSource   *models.Source
	getEntityErr    error
	getEntityResult *models.Entity
}

func (f *fakeCatalogStore) CreateEntity(ctx context.Context, e *models.Entity, now time.Time) (string, error) {
	f.createdEntity = e
	return "new-id", nil
}

func (f *fakeCatalogStore) CreateSource(ctx context.Context, src *models.Source, now time.Time) (string, error) {
	f.createdSource = src
	return "new-id", nil
}

func (f *fakeCatalogStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	return f.getEntityResult, f.getEntityErr
}

func TestCreateEntity_RejectsMissingCanonicalName(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogStore{}, func() time.Time { return time.Unix(0, 0) })
	_, err := svc.CreateEntity(context.Background(), &models.Entity{EntityType: models.EntityTypeEngine})
	assert.True(t, IsValidationError(err))
}

func TestCreateEntity_RejectsUnknownEntityType(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogStore{}, func() time.Time { return time.Unix(0, 0) })
	_, err := svc.CreateEntity(context.Background(), &models.Entity{CanonicalName: "Raptor", EntityType: "booster"})
	assert.True(t, IsValidationError(err))
}

func TestCreateEntity_DelegatesToStoreWhenValid(t *testing.T) {
	fs := &fakeCatalogStore{}
	svc := NewCatalogService(fs, func() time.Time { return time.Unix(0, 0) })
	id, err := svc.CreateEntity(context.Background(), &models.Entity{CanonicalName: "Raptor", EntityType: models.EntityTypeEngine})
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, "Raptor", fs.createdEntity.CanonicalName)
}

func TestCreateSource_RejectsOutOfRangeBaseTrust(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogStore{}, nil)
	_, err := svc.CreateSource(context.Background(), &models.Source{Name: "SpaceX", SourceType: "official", BaseTrust: 1.5})
	assert.True(t, IsValidationError(err))
}

func TestCreateSource_RejectsMissingName(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogStore{}, nil)
	_, err := svc.CreateSource(context.Background(), &models.Source{SourceType: "official", BaseTrust: 0.8})
	assert.True(t, IsValidationError(err))
}

func TestGetEntity_TranslatesStoreNotFound(t *testing.T) {
	fs := &fakeCatalogStore{getEntityErr: store.ErrNotFound}
	svc := NewCatalogService(fs, nil)
	_, err := svc.GetEntity(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEntity_PassesThroughOnSuccess(t *testing.T) {
	want := &models.Entity{ID: "e1", CanonicalName: "Raptor"}
	fs := &fakeCatalogStore{getEntityResult: want}
	svc := NewCatalogService(fs, nil)
	got, err := svc.GetEntity(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
