package services

import (
	"context"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ReviewService manages the human-review queue and the conflict groups it
// references (spec §4.4 "Review queue", §6 "CRUD over ... review queue").
type ReviewService struct {
	store store.Store
	now   func() time.Time
}

func NewReviewService(st store.Store, now func() time.Time) *ReviewService {
	if now == nil {
		now = time.Now
	}
	return &ReviewService{store: st, now: now}
}

func (r *ReviewService) ListItems(ctx context.Context, status string, limit int) ([]*models.ReviewQueueItem, error) {
	out, err := r.store.ListReviewQueueItems(ctx, status, limit)
	return out, translate(err)
}

func (r *ReviewService) Resolve(ctx context.Context, id, status, resolvedBy string) error {
	switch status {
	case models.ReviewStatusResolved, models.ReviewStatusDismissed, models.ReviewStatusInReview:
	default:
		return NewValidationError("status", "must be in_review, resolved, or dismissed")
	}
	return translate(r.store.ResolveReviewQueueItem(ctx, id, status, resolvedBy, r.now()))
}

func (r *ReviewService) GetConflictGroup(ctx context.Context, id string) (*models.ConflictGroup, error) {
	g, err := r.store.GetConflictGroup(ctx, id)
	return g, translate(err)
}

func (r *ReviewService) ListConflictGroups(ctx context.Context, limit int) ([]*models.ConflictGroup, error) {
	out, err := r.store.ListConflictGroups(ctx, limit)
	return out, translate(err)
}

// ClaimsForGroup returns the group's member claims with their evidence
// aggregates, the detail view behind a conflict group's CRUD "show" page.
func (r *ReviewService) ClaimsForGroup(ctx context.Context, groupID string) ([]*store.ClaimDetail, error) {
	out, err := r.store.ListClaimDetailsForGroup(ctx, groupID)
	return out, translate(err)
}
