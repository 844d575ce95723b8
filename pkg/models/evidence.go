package models

import "time"

// Evidence links a Claim to the Snippet it was extracted from, carrying a
// stance and extraction confidence (spec §3, glossary). Evidence rows
// are created with their claim; stance is immutable.
type Evidence struct {
	ID                  string
	ClaimID             string
	SnippetID           string
	Quote               string
	Stance              string  // support|contradict|neutral
	ExtractionConfidence float64 // ∈ [0,1]
	CreatedAt           time.Time
}

// Stance enumerates the recognized evidentiary stances (spec §3).
const (
	StanceSupport    = "support"
	StanceContradict = "contradict"
	StanceNeutral    = "neutral"
)

// TruthMetrics is the scorer's output for a single claim (spec §3, §4.6).
// It is upserted transactionally and is stale whenever
// claim.UpdatedAt > ComputedAt.
type TruthMetrics struct {
	ClaimID             string // unique
	ConflictGroupID     string
	TruthRaw            float64 // ∈ [0,1]
	SupportScore        float64
	ContradictionScore  float64
	IndependentSources  int
	RecencyScore        float64
	SpecificityScore    float64
	Factors             map[string]any
	ComputedAt          time.Time
}

// FieldLink is a weak reference from a domain field name to a
// claim-key bucket (spec §3, glossary); never owning, updated on rederive.
type FieldLink struct {
	ID           string
	EntityID     string
	FieldName    string // e.g. "engines.thrust_n"; unique with EntityID
	ClaimKeyHash []byte // points to a ConflictGroup
	AutoUpdate   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReviewQueueItem is a human-review task emitted by the ConflictDetector
// (spec §3, §4.4); updated only by human action thereafter.
type ReviewQueueItem struct {
	ID         string
	ItemType   string // conflict_group|claim|entity|document
	ItemID     string
	Reason     string
	Priority   int // ∈ [1,10]
	Status     string // pending|in_review|resolved|dismissed
	Notes      string
	ResolvedAt *time.Time
	ResolvedBy string
	CreatedAt  time.Time
}

// ReviewQueueItem status values (spec §3).
const (
	ReviewStatusPending   = "pending"
	ReviewStatusInReview  = "in_review"
	ReviewStatusResolved  = "resolved"
	ReviewStatusDismissed = "dismissed"
)

// ReviewQueueItem item types (spec §3).
const (
	ReviewItemConflictGroup = "conflict_group"
	ReviewItemClaim         = "claim"
	ReviewItemEntity        = "entity"
	ReviewItemDocument      = "document"
)

// SyncStatus records a single run of a pipeline stage (spec §3, §4.8).
// At most one row per SyncType may be in state "running" at a time.
type SyncStatus struct {
	ID             string
	SyncType       string
	State          string // running|success|failed|cancelled|timeout
	StartedAt      time.Time
	CompletedAt    *time.Time
	RecordsSynced  int
	ErrorMessage   string
	Metadata       map[string]any
}

// SyncStatus state values (spec §3, §4.8).
const (
	SyncStateRunning   = "running"
	SyncStateSuccess   = "success"
	SyncStateFailed    = "failed"
	SyncStateCancelled = "cancelled"
	SyncStateTimeout   = "timeout"
)

// IsTerminal reports whether the state is one the job will not transition
// out of without a new run.
func IsTerminal(state string) bool {
	switch state {
	case SyncStateSuccess, SyncStateFailed, SyncStateCancelled, SyncStateTimeout:
		return true
	default:
		return false
	}
}
