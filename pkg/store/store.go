package store

import (
	"context"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
)

// ClaimDetail bundles a Claim with the aggregates the conflict detector
// needs per group member (spec §4.4 step 1): evidence count and the
// latest publishedAt among its supporting documents.
type ClaimDetail struct {
	Claim           *models.Claim
	EvidenceCount   int
	LatestPublished *time.Time
}

// EvidenceDetail is a single evidence row joined out to its snippet,
// document, and source, the shape the Scorer and FactResolver both walk
// (spec §4.6 step 1, §4.7 step 2).
type EvidenceDetail struct {
	Evidence                    *models.Evidence
	SnippetLocator              string
	SnippetText                 string
	DocumentTitle               string
	DocumentDocType             string
	DocumentPublished           *time.Time
	DocumentSuperseded          bool
	SourceName                  string
	SourceType                  string
	SourceBaseTrust             float64
	SourceIndependenceClusterID string
	SourceID                    string
}

// ClaimWithMetrics is a ConflictGroup alternative as seen by the
// FactResolver (spec §4.7 step 2): the claim plus its computed metrics.
type ClaimWithMetrics struct {
	Claim   *models.Claim
	Metrics *models.TruthMetrics // nil if not yet scored
}

// ScoreFilter narrows the Scorer's claim selection (spec §4.6 "Selection").
type ScoreFilter struct {
	ClaimIDs         []string
	ConflictGroupIDs []string
	EntityIDs        []string
	ForceRescore     bool
	Limit            int
}

// ConflictFilter narrows the ConflictDetector's group selection (spec §4.4
// "Selection").
type ConflictFilter struct {
	ForceRecheck bool
	Limit        int
}

// Store is the persistence boundary every pipeline component depends on.
// The Postgres implementation is the only one wired at runtime; tests may
// substitute a lighter fake for units that don't need real SQL semantics.
type Store interface {
	// Sources, feeds, URLs (spec §4.1, §4.2, §6 CRUD surface).
	GetSource(ctx context.Context, id string) (*models.Source, error)
	ListActiveSources(ctx context.Context) ([]*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	CreateSource(ctx context.Context, src *models.Source, now time.Time) (string, error)
	UpdateSource(ctx context.Context, src *models.Source, now time.Time) error
	DeleteSource(ctx context.Context, id string) error
	ListDueFeeds(ctx context.Context, now time.Time) ([]*models.SourceFeed, error)
	GetSourceFeed(ctx context.Context, id string) (*models.SourceFeed, error)
	ListSourceFeeds(ctx context.Context, sourceID string) ([]*models.SourceFeed, error)
	CreateSourceFeed(ctx context.Context, f *models.SourceFeed, now time.Time) (string, error)
	UpdateSourceFeed(ctx context.Context, f *models.SourceFeed, now time.Time) error
	DeleteSourceFeed(ctx context.Context, id string) error
	ListSourceURLs(ctx context.Context, sourceID string) ([]*models.SourceURL, error)
	CreateSourceURL(ctx context.Context, u *models.SourceURL, now time.Time) (string, error)
	DeleteSourceURL(ctx context.Context, id string) error
	UpdateFeedFetchResult(ctx context.Context, feedID string, now time.Time, fetchErr string) error

	// Documents and snippets (spec §4.1).
	UpsertDocument(ctx context.Context, doc *models.Document) (id string, created bool, err error)
	FindPredecessorDocument(ctx context.Context, sourceID, url string) (*models.Document, error)
	InsertSnippet(ctx context.Context, snip *models.Snippet) (id string, created bool, err error)
	ListUnprocessedSnippets(ctx context.Context, limit int) ([]*models.Snippet, error)

	// Entities and attributes (spec §3, §4.3, §6 CRUD surface).
	ListEntities(ctx context.Context) ([]*models.Entity, error)
	CreateEntity(ctx context.Context, e *models.Entity, now time.Time) (string, error)
	UpdateEntity(ctx context.Context, e *models.Entity, now time.Time) error
	DeleteEntity(ctx context.Context, id string) error
	ListAttributes(ctx context.Context) ([]*models.Attribute, error)
	GetAttributeByName(ctx context.Context, canonicalName string) (*models.Attribute, error)
	GetAttributeByID(ctx context.Context, id string) (*models.Attribute, error)
	CreateAttribute(ctx context.Context, a *models.Attribute, now time.Time) (string, error)
	UpdateAttribute(ctx context.Context, a *models.Attribute) error
	DeleteAttribute(ctx context.Context, id string) error
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	FindEntityByDomainID(ctx context.Context, entityType, domainID string) (*models.Entity, error)

	// Claims, conflict groups, evidence (spec §4.3, §4.4, §4.5, §6 CRUD surface).
	UpsertConflictGroup(ctx context.Context, hash []byte, entityID, attributeID string, scope models.Scope) (id string, err error)
	GetConflictGroup(ctx context.Context, id string) (*models.ConflictGroup, error)
	GetConflictGroupByHash(ctx context.Context, hash []byte) (*models.ConflictGroup, error)
	ListConflictGroups(ctx context.Context, limit int) ([]*models.ConflictGroup, error)
	UpdateConflictGroupStatus(ctx context.Context, groupID string, conflictPresent bool, status string, details map[string]any) error
	IncrementConflictGroupClaimCount(ctx context.Context, groupID string, delta int) error

	FindClaimByKeyAndValue(ctx context.Context, hash []byte, value models.ClaimValue) (*models.Claim, error)
	FindDerivedClaim(ctx context.Context, hash []byte, derivedFromClaimID string) (*models.Claim, error)
	InsertClaim(ctx context.Context, claim *models.Claim) (id string, err error)
	ListClaimDetailsForGroup(ctx context.Context, groupID string) ([]*ClaimDetail, error)
	ListClaimsByAttribute(ctx context.Context, attributeID string, scopeFilter models.Scope) ([]*models.Claim, error)
	ListConflictGroupsForDetection(ctx context.Context, filter ConflictFilter) ([]*models.ConflictGroup, error)

	InsertEvidence(ctx context.Context, ev *models.Evidence) (created bool, err error)
	CopyEvidence(ctx context.Context, fromClaimID, toClaimID string) (copied int, err error)
	ListEvidenceForClaim(ctx context.Context, claimID string) ([]*EvidenceDetail, error)

	// FieldLinks (spec §4.5 step 7).
	UpsertFieldLink(ctx context.Context, entityID, fieldName string, hash []byte, autoUpdate bool) (inserted bool, err error)
	GetFieldLink(ctx context.Context, entityID, fieldName string) (*models.FieldLink, error)

	// Review queue (spec §4.4).
	InsertReviewQueueItem(ctx context.Context, item *models.ReviewQueueItem) (created bool, err error)
	ListReviewQueueItems(ctx context.Context, status string, limit int) ([]*models.ReviewQueueItem, error)
	ResolveReviewQueueItem(ctx context.Context, id, status, resolvedBy string, now time.Time) error

	// Scoring (spec §4.6).
	ListClaimsNeedingScore(ctx context.Context, filter ScoreFilter) ([]*models.Claim, error)
	UpsertTruthMetrics(ctx context.Context, tm *models.TruthMetrics) error
	GetTruthMetrics(ctx context.Context, claimID string) (*models.TruthMetrics, error)

	// Resolution (spec §4.7).
	ListClaimsWithMetrics(ctx context.Context, groupID string) ([]*ClaimWithMetrics, error)

	// Sync status / jobs (spec §4.8, §5).
	CreateSyncStatus(ctx context.Context, syncType string, metadata map[string]any, now time.Time) (*models.SyncStatus, error)
	CompleteSyncStatus(ctx context.Context, id, state string, recordsSynced int, errMsg string, now time.Time) error
	GetRunningSyncStatus(ctx context.Context, syncType string) (*models.SyncStatus, error)
	ListSyncHistory(ctx context.Context, syncType string, limit int) ([]*models.SyncStatus, error)
	ListStuckRunningSyncs(ctx context.Context, olderThan time.Duration, now time.Time) ([]*models.SyncStatus, error)

	Close()
}
