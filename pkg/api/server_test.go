package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/orchestrator"
	"github.com/truthledger/truthledger/pkg/reaper"
	"github.com/truthledger/truthledger/pkg/resolve"
	"github.com/truthledger/truthledger/pkg/services"
	"github.com/truthledger/truthledger/pkg/store"
)

type fakeAPIStore struct {
	store.Store
	entities map[string]*models.Entity
}

func newFakeAPIStore() *fakeAPIStore {
	return &fakeAPIStore{entities: make(map[string]*models.Entity)}
}

func (f *fakeAPIStore) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	out := make([]*models.Entity, 0, len(f.entities))
	for _, e := range f.entities {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAPIStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	e, ok := f.entities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeAPIStore) CreateEntity(ctx context.Context, e *models.Entity, now time.Time) (string, error) {
	e.ID = "generated-id"
	f.entities[e.ID] = e
	return e.ID, nil
}

func (f *fakeAPIStore) ListSyncHistory(ctx context.Context, syncType string, limit int) ([]*models.SyncStatus, error) {
	return nil, nil
}

func newTestServer(st *fakeAPIStore) *Server {
	gin.SetMode(gin.TestMode)
	catalog := services.NewCatalogService(st, func() time.Time { return time.Unix(0, 0) })
	review := services.NewReviewService(st, func() time.Time { return time.Unix(0, 0) })
	orch := orchestrator.New(st, map[string]orchestrator.Runner{}, nil, func() time.Time { return time.Unix(0, 0) })
	rp := reaper.New(st, time.Hour, time.Hour, func() time.Time { return time.Unix(0, 0) }, nil)
	pipeline := services.NewPipelineService(orch, rp)
	resolver := resolve.New(st, config.DefaultResolverPolicy())
	return NewServer(st, catalog, review, pipeline, resolver, nil)
}

func TestHealth_ReturnsHealthyWithNoFailedStages(t *testing.T) {
	srv := newTestServer(newFakeAPIStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCreateEntity_ReturnsGeneratedID(t *testing.T) {
	srv := newTestServer(newFakeAPIStore())
	body := `{"canonical_name":"Raptor","entity_type":"engine"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "generated-id", out["id"])
}

func TestCreateEntity_RejectsInvalidEntityType(t *testing.T) {
	srv := newTestServer(newFakeAPIStore())
	body := `{"canonical_name":"Raptor","entity_type":"booster"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEntity_ReturnsNotFoundForMissingID(t *testing.T) {
	srv := newTestServer(newFakeAPIStore())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/missing", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
