// Package orchestrator runs the fixed pipeline job set off the request
// path, tracking each run with an in-memory handle backed by a
// SyncStatus row, grounded on the teacher's queue.WorkerPool session
// registry and terminal-status lifecycle (spec §4.8).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// Job ids: the fixed set (spec §4.8 "Job definitions").
const (
	JobURLIngest    = "url_ingest"
	JobFeedIngest   = "feed_ingest"
	JobExtract      = "extract"
	JobConflicts    = "conflicts"
	JobDerive       = "derive"
	JobScore        = "score"
	JobFullPipeline = "full_pipeline"
)

// Handle status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var fullPipelineStages = []string{JobExtract, JobConflicts, JobDerive, JobScore}

var allJobIDs = []string{JobURLIngest, JobFeedIngest, JobExtract, JobConflicts, JobDerive, JobScore, JobFullPipeline}

// Sentinel errors (spec §4.8).
var (
	ErrUnknownJob     = errors.New("orchestrator: unknown job id")
	ErrAlreadyRunning = errors.New("orchestrator: job already running")
	ErrNotRunning     = errors.New("orchestrator: job is not running")
	ErrCancelled      = errors.New("orchestrator: cancelled by user")
)

const handleGracePeriod = 60 * time.Second

// ProgressFunc is the callback stage runners invoke to report progress
// (spec §4.8 step 5).
type ProgressFunc func(current, total int, message string)

// Runner executes one stage and returns the number of records synced
// (spec §4.8 step 6 "recordsSynced").
type Runner func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (recordsSynced int, err error)

// Progress is the most recently reported progress for a running handle.
type Progress struct {
	Current int
	Total   int
	Message string
}

// Snapshot is a read-only, mutex-free copy of a Handle's state, safe to
// hand to callers outside the orchestrator (spec §4.8 "getStatus()").
type Snapshot struct {
	RunID        string
	JobID        string
	SyncStatusID string
	Status       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	CurrentStage string
	Progress     Progress
	Error        string
}

// Handle is the in-memory record of one job run (spec §4.8 step 3).
type Handle struct {
	RunID        string
	JobID        string
	SyncStatusID string
	Status       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	CurrentStage string // set for full_pipeline's active child (spec §4.8 "full_pipeline")
	Progress     Progress
	Error        string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (h *Handle) snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		RunID:        h.RunID,
		JobID:        h.JobID,
		SyncStatusID: h.SyncStatusID,
		Status:       h.Status,
		StartedAt:    h.StartedAt,
		CompletedAt:  h.CompletedAt,
		CurrentStage: h.CurrentStage,
		Progress:     h.Progress,
		Error:        h.Error,
	}
}

func (h *Handle) setProgress(stage string, current, total int, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if stage != "" {
		h.CurrentStage = stage
	}
	h.Progress = Progress{Current: current, Total: total, Message: message}
}

func (h *Handle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Status == StatusCancelled
}

func (h *Handle) finish(status, errMsg string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Status != StatusRunning {
		return // already terminal (e.g. Cancel beat the goroutine to it)
	}
	h.Status = status
	h.Error = errMsg
	h.CompletedAt = &now
}

// Orchestrator runs the fixed job set, at most one run per jobId at a
// time (spec §4.8, §5).
type Orchestrator struct {
	store   store.Store
	runners map[string]Runner
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	running map[string]*Handle // jobId -> handle; present while running or within the grace period
}

// New builds an Orchestrator. runners must provide a Runner for every
// job id except full_pipeline, which is composed internally from
// [extract, conflicts, derive, score].
func New(st store.Store, runners map[string]Runner, logger *slog.Logger, now func() time.Time) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{store: st, runners: runners, logger: logger, now: now, running: make(map[string]*Handle)}
}

func validJobID(jobID string) bool {
	for _, id := range allJobIDs {
		if id == jobID {
			return true
		}
	}
	return false
}

// Run validates jobID, allocates a runId, records an in-memory handle
// and a SyncStatus row, and starts execution in the background,
// returning immediately (spec §4.8 steps 1-4).
func (o *Orchestrator) Run(ctx context.Context, jobID, triggeredBy string) (runID string, startedAt time.Time, err error) {
	if !validJobID(jobID) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if jobID != JobFullPipeline {
		if _, ok := o.runners[jobID]; !ok {
			return "", time.Time{}, fmt.Errorf("%w: no runner registered for %s", ErrUnknownJob, jobID)
		}
	}

	o.mu.Lock()
	if h, ok := o.running[jobID]; ok && h.snapshot().Status == StatusRunning {
		o.mu.Unlock()
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, jobID)
	}
	o.mu.Unlock()

	if _, err := o.store.GetRunningSyncStatus(ctx, jobID); err == nil {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, jobID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, fmt.Errorf("orchestrator: check running status: %w", err)
	}

	runID = uuid.NewString()
	startedAt = o.now()

	syncStatus, err := o.store.CreateSyncStatus(ctx, jobID, map[string]any{"run_id": runID, "triggered_by": triggeredBy}, startedAt)
	if errors.Is(err, store.ErrAlreadyRunning) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, jobID)
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("orchestrator: create sync status: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		RunID:        runID,
		JobID:        jobID,
		SyncStatusID: syncStatus.ID,
		Status:       StatusRunning,
		StartedAt:    startedAt,
		cancel:       cancel,
	}

	o.mu.Lock()
	o.running[jobID] = handle
	o.mu.Unlock()

	go o.execute(runCtx, handle)

	return runID, startedAt, nil
}

// Cancel marks jobID's running handle cancelled, raises its cancellation
// signal, and updates its SyncStatus row (spec §4.8 "Cancellation").
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	handle, ok := o.running[jobID]
	o.mu.Unlock()
	if !ok || handle.snapshot().Status != StatusRunning {
		return fmt.Errorf("%w: %s", ErrNotRunning, jobID)
	}

	now := o.now()
	handle.mu.Lock()
	alreadyTerminal := handle.Status != StatusRunning
	if !alreadyTerminal {
		handle.Status = StatusCancelled
		handle.Error = "Cancelled by user"
		handle.CompletedAt = &now
	}
	cancel := handle.cancel
	handle.mu.Unlock()
	if alreadyTerminal {
		return fmt.Errorf("%w: %s", ErrNotRunning, jobID)
	}

	cancel()

	if err := o.store.CompleteSyncStatus(context.Background(), handle.SyncStatusID, models.SyncStateCancelled, 0, "Cancelled by user", now); err != nil {
		o.logger.Warn("orchestrator: failed to persist cancellation", "job_id", jobID, "error", err)
	}
	o.scheduleRemoval(jobID, handle)
	return nil
}

// execute runs jobID (dispatching to full_pipeline's composed stages or
// a single registered Runner), then records the terminal transition
// (spec §4.8 steps 5-8).
func (o *Orchestrator) execute(ctx context.Context, handle *Handle) {
	checkCancelled := func() bool { return ctx.Err() != nil || handle.isCancelled() }
	onProgress := func(current, total int, message string) { handle.setProgress("", current, total, message) }

	var recordsSynced int
	var err error
	if handle.JobID == JobFullPipeline {
		recordsSynced, err = o.runFullPipeline(ctx, handle, checkCancelled)
	} else {
		runner := o.runners[handle.JobID]
		recordsSynced, err = runner(ctx, checkCancelled, onProgress)
	}

	now := o.now()
	switch {
	case err == nil:
		handle.finish(StatusCompleted, "", now)
		if cerr := o.store.CompleteSyncStatus(context.Background(), handle.SyncStatusID, models.SyncStateSuccess, recordsSynced, "", now); cerr != nil {
			o.logger.Warn("orchestrator: failed to persist success", "job_id", handle.JobID, "error", cerr)
		}
	case errors.Is(err, ErrCancelled) || ctx.Err() != nil:
		// Cancel() already wrote the terminal transition when it beat
		// this goroutine to it; finish() is a no-op in that case.
		handle.finish(StatusCancelled, "Cancelled by user", now)
	default:
		handle.finish(StatusFailed, err.Error(), now)
		if cerr := o.store.CompleteSyncStatus(context.Background(), handle.SyncStatusID, models.SyncStateFailed, recordsSynced, err.Error(), now); cerr != nil {
			o.logger.Warn("orchestrator: failed to persist failure", "job_id", handle.JobID, "error", cerr)
		}
	}

	o.scheduleRemoval(handle.JobID, handle)
}

// runFullPipeline runs [extract, conflicts, derive, score] sequentially,
// sharing the parent cancellation signal and reporting the active child
// via handle.CurrentStage (spec §4.8 "full_pipeline").
func (o *Orchestrator) runFullPipeline(ctx context.Context, handle *Handle, checkCancelled func() bool) (int, error) {
	total := 0
	for _, stage := range fullPipelineStages {
		if checkCancelled() {
			return total, ErrCancelled
		}
		runner, ok := o.runners[stage]
		if !ok {
			return total, fmt.Errorf("orchestrator: no runner registered for stage %s", stage)
		}
		stageProgress := func(current, stageTotal int, message string) {
			handle.setProgress(stage, current, stageTotal, message)
		}
		n, err := runner(ctx, checkCancelled, stageProgress)
		total += n
		if err != nil {
			return total, fmt.Errorf("stage %s: %w", stage, err)
		}
	}
	return total, nil
}

func (o *Orchestrator) scheduleRemoval(jobID string, handle *Handle) {
	time.AfterFunc(handleGracePeriod, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if current, ok := o.running[jobID]; ok && current == handle && handle.snapshot().Status != StatusRunning {
			delete(o.running, jobID)
		}
	})
}

// StageStatus merges a stage's most recent SyncStatus row with its live
// in-memory handle, if any (spec §4.8 "Status reporting").
type StageStatus struct {
	JobID string
	Last  *models.SyncStatus
	Live  *Snapshot
}

// GetStatus returns, per job id, the most recent SyncStatus row merged
// with the live handle (spec §4.8 "getStatus()").
func (o *Orchestrator) GetStatus(ctx context.Context) (map[string]StageStatus, error) {
	out := make(map[string]StageStatus, len(allJobIDs))
	for _, jobID := range allJobIDs {
		history, err := o.store.ListSyncHistory(ctx, jobID, 1)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: list sync history for %s: %w", jobID, err)
		}
		var last *models.SyncStatus
		if len(history) > 0 {
			last = history[0]
		}

		var live *Snapshot
		o.mu.Lock()
		if handle, ok := o.running[jobID]; ok {
			snap := handle.snapshot()
			live = &snap
		}
		o.mu.Unlock()

		out[jobID] = StageStatus{JobID: jobID, Last: last, Live: live}
	}
	return out, nil
}

// Healthy reports whether every stage's last run is absent or not
// `failed` (spec §4.8 "Status reporting": "Pipeline is healthy iff every
// stage's last run is absent or not in failed").
func Healthy(status map[string]StageStatus) bool {
	for _, s := range status {
		if s.Last != nil && s.Last.State == models.SyncStateFailed {
			return false
		}
	}
	return true
}
