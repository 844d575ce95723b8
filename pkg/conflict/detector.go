// Package conflict classifies each ConflictGroup's consistency and emits
// review items for groups with comparable competing evidence (spec §4.4).
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// ErrCancelled is returned when checkCancelled signals abort mid-run.
var ErrCancelled = errors.New("conflict: cancelled")

// ProgressFunc reports detector progress (spec §4.4, mirrors the
// Extractor's "every 10" cadence).
type ProgressFunc func(current, total int, message string)

// Result is the detectConflicts(config) → DetectResult contract.
type Result struct {
	GroupsAnalyzed    int
	NoConflict        int
	ResolvedByVersion int
	ActiveConflict    int
	NeedsReview       int
}

// versioningWindow is the minimum age gap (spec §4.4 step 5 "Versioning
// resolution") required for the newest value class to win outright.
const versioningWindow = 180 * 24 * time.Hour

// evidenceQualityRatio is the minimum ratio of top-class to runner-up
// evidence (spec §4.4 step 5 "evidence-quality") required to call an
// active conflict rather than escalate to review.
const evidenceQualityRatio = 2.0

// reviewPriority is the fixed ReviewQueueItem priority for conflict
// groups needing human review (spec §4.4 "Persistence").
const reviewPriority = 5

// Detector runs the ConflictDetector over ConflictGroups with competing
// claims (spec §4.4).
type Detector struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: st, logger: logger}
}

// Filter narrows the detector's group selection (spec §4.4 "Selection").
type Filter struct {
	ForceRecheck bool
	Limit        int
}

// Run implements detectConflicts(config) (spec §4.4 steps 1-5).
func (d *Detector) Run(ctx context.Context, filter Filter, checkCancelled func() bool, onProgress ProgressFunc) (*Result, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	groups, err := d.store.ListConflictGroupsForDetection(ctx, store.ConflictFilter{
		ForceRecheck: filter.ForceRecheck,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("conflict: list groups: %w", err)
	}

	attributes, err := d.store.ListAttributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("conflict: list attributes: %w", err)
	}
	attrByID := make(map[string]*models.Attribute, len(attributes))
	for _, a := range attributes {
		attrByID[a.ID] = a
	}

	result := &Result{}
	total := len(groups)
	for i, group := range groups {
		if checkCancelled != nil && checkCancelled() {
			return result, ErrCancelled
		}

		attr := attrByID[group.AttributeID]
		if attr == nil {
			attr = &models.Attribute{ToleranceRel: models.DefaultToleranceRel}
		}

		if err := d.analyzeGroup(ctx, group, attr, result); err != nil {
			d.logger.Warn("conflict: group analysis failed", "group_id", group.ID, "error", err)
		}

		if onProgress != nil && (i+1)%10 == 0 {
			onProgress(i+1, total, fmt.Sprintf("analyzed %d/%d groups", i+1, total))
		}
	}
	if onProgress != nil {
		onProgress(total, total, "conflict detection complete")
	}
	return result, nil
}

// valueClass is one equivalence class of claims agreeing on a value
// (spec §4.4 step 3 "Value grouping").
type valueClass struct {
	claims        []*store.ClaimDetail
	evidenceCount int
	maxPublished  *time.Time
}

func (d *Detector) analyzeGroup(ctx context.Context, group *models.ConflictGroup, attr *models.Attribute, result *Result) error {
	details, err := d.store.ListClaimDetailsForGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("list claim details: %w", err)
	}

	result.GroupsAnalyzed++

	if len(details) <= 1 {
		result.NoConflict++
		return d.persist(ctx, group, false, models.StatusNoConflict, nil)
	}

	classes := groupByValue(details, attr)
	if len(classes) == 1 {
		result.NoConflict++
		return d.persist(ctx, group, false, models.StatusNoConflict, nil)
	}

	sort.Slice(classes, func(i, j int) bool {
		return laterThan(classes[i].maxPublished, classes[j].maxPublished)
	})

	top, runnerUp := classes[0], classes[1]

	if gapAtLeast(top.maxPublished, runnerUp.maxPublished, versioningWindow) && top.evidenceCount >= runnerUp.evidenceCount {
		result.ResolvedByVersion++
		return d.persist(ctx, group, true, models.StatusResolvedByVersioning, map[string]any{
			"conflict_type": "value_disagreement",
			"newest_value":  top.claims[0].Claim.Value,
		})
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].evidenceCount > classes[j].evidenceCount })
	top, second := classes[0], classes[1]

	if float64(top.evidenceCount) >= evidenceQualityRatio*float64(second.evidenceCount) && top.evidenceCount >= 2 {
		result.ActiveConflict++
		if err := d.persist(ctx, group, true, models.StatusActiveConflict, map[string]any{
			"conflict_type": "value_disagreement",
			"leading_value": top.claims[0].Claim.Value,
		}); err != nil {
			return err
		}
		return nil
	}

	result.NeedsReview++
	if err := d.persist(ctx, group, true, models.StatusNeedsReview, map[string]any{
		"conflict_type": "value_disagreement",
		"needs_review":  true,
		"reason":        "Multiple conflicting values with comparable evidence",
	}); err != nil {
		return err
	}

	created, err := d.store.InsertReviewQueueItem(ctx, &models.ReviewQueueItem{
		ItemType: models.ReviewItemConflictGroup,
		ItemID:   group.ID,
		Reason:   "Multiple conflicting values with comparable evidence",
		Priority: reviewPriority,
		Status:   models.ReviewStatusPending,
	})
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	if created {
		d.logger.Info("conflict: review item created", "group_id", group.ID)
	}
	return nil
}

// groupByValue partitions claims into equivalence classes under
// spec §4.4 step 3: type mismatch never equal, numeric tolerance via the
// attribute's own toleranceAbs/toleranceRel, else strict equality.
func groupByValue(details []*store.ClaimDetail, attr *models.Attribute) []*valueClass {
	var classes []*valueClass
	for _, d := range details {
		placed := false
		for _, c := range classes {
			if valuesEqual(c.claims[0].Claim.Value, d.Claim.Value, attr) {
				c.claims = append(c.claims, d)
				c.evidenceCount += d.EvidenceCount
				if laterThan(d.LatestPublished, c.maxPublished) {
					c.maxPublished = d.LatestPublished
				}
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, &valueClass{
				claims:        []*store.ClaimDetail{d},
				evidenceCount: d.EvidenceCount,
				maxPublished:  d.LatestPublished,
			})
		}
	}
	return classes
}

// valuesEqual implements the equivalence test of spec §4.4 step 3: type
// mismatch is never equal; numeric values use the attribute's tolerance
// (Attribute.WithinTolerance); everything else is strict equality.
func valuesEqual(a, b models.ClaimValue, attr *models.Attribute) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case "number":
		af, aok := toFloat(a.Value)
		bf, bok := toFloat(b.Value)
		if !aok || !bok {
			return false
		}
		return attr.WithinTolerance(af, bf)
	default:
		return a.Value == b.Value
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// laterThan reports whether a is strictly after b, treating nil as
// earliest (spec §4.4 step 5 "order classes by max evidence date").
func laterThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// gapAtLeast reports whether a leads b by at least window, treating a
// nil time as disqualifying (no evidence date means no versioning claim).
func gapAtLeast(a, b *time.Time, window time.Duration) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Sub(*b) >= window
}

func (d *Detector) persist(ctx context.Context, group *models.ConflictGroup, conflictPresent bool, status string, details map[string]any) error {
	if err := d.store.UpdateConflictGroupStatus(ctx, group.ID, conflictPresent, status, details); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}
