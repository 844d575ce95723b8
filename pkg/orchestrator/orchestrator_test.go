package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// fakeStore embeds the Store interface (nil) and overrides only the
// methods the orchestrator exercises.
type fakeStore struct {
	store.Store

	mu        sync.Mutex
	running   map[string]bool
	completed chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{running: make(map[string]bool), completed: make(chan string, 16)}
}

func (f *fakeStore) GetRunningSyncStatus(ctx context.Context, syncType string) (*models.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running[syncType] {
		return &models.SyncStatus{SyncType: syncType, State: models.SyncStateRunning}, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateSyncStatus(ctx context.Context, syncType string, metadata map[string]any, now time.Time) (*models.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running[syncType] {
		return nil, store.ErrAlreadyRunning
	}
	f.running[syncType] = true
	return &models.SyncStatus{ID: syncType + "-run", SyncType: syncType, State: models.SyncStateRunning, StartedAt: now}, nil
}

func (f *fakeStore) CompleteSyncStatus(ctx context.Context, id, state string, recordsSynced int, errMsg string, now time.Time) error {
	f.mu.Lock()
	f.running[id[:len(id)-len("-run")]] = false
	f.mu.Unlock()
	f.completed <- state
	return nil
}

func (f *fakeStore) ListSyncHistory(ctx context.Context, syncType string, limit int) ([]*models.SyncStatus, error) {
	return nil, nil
}

func waitForCompletion(t *testing.T, fs *fakeStore) string {
	t.Helper()
	select {
	case state := <-fs.completed:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job completion")
		return ""
	}
}

func TestRun_RejectsUnknownJobID(t *testing.T) {
	o := New(newFakeStore(), map[string]Runner{}, nil, func() time.Time { return time.Unix(0, 0) })
	_, _, err := o.Run(context.Background(), "not_a_job", "test")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRun_SucceedsAndCompletesSyncStatus(t *testing.T) {
	fs := newFakeStore()
	runners := map[string]Runner{
		JobExtract: func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) {
			onProgress(1, 1, "done")
			return 5, nil
		},
	}
	o := New(fs, runners, nil, func() time.Time { return time.Unix(0, 0) })

	runID, _, err := o.Run(context.Background(), JobExtract, "test")
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	state := waitForCompletion(t, fs)
	assert.Equal(t, models.SyncStateSuccess, state)
}

func TestRun_RejectsWhenAlreadyRunning(t *testing.T) {
	fs := newFakeStore()
	started := make(chan struct{})
	release := make(chan struct{})
	runners := map[string]Runner{
		JobExtract: func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) {
			close(started)
			<-release
			return 0, nil
		},
	}
	o := New(fs, runners, nil, func() time.Time { return time.Unix(0, 0) })

	_, _, err := o.Run(context.Background(), JobExtract, "test")
	require.NoError(t, err)
	<-started

	_, _, err = o.Run(context.Background(), JobExtract, "test")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	waitForCompletion(t, fs)
}

func TestCancel_StopsARunningJob(t *testing.T) {
	fs := newFakeStore()
	started := make(chan struct{})
	runners := map[string]Runner{
		JobExtract: func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) {
			close(started)
			for !checkCancelled() {
				time.Sleep(time.Millisecond)
			}
			return 0, ErrCancelled
		},
	}
	o := New(fs, runners, nil, func() time.Time { return time.Unix(0, 0) })

	_, _, err := o.Run(context.Background(), JobExtract, "test")
	require.NoError(t, err)
	<-started

	require.NoError(t, o.Cancel(JobExtract))

	state := waitForCompletion(t, fs)
	assert.Equal(t, models.SyncStateCancelled, state)
}

func TestCancel_ErrorsWhenNotRunning(t *testing.T) {
	o := New(newFakeStore(), map[string]Runner{}, nil, nil)
	err := o.Cancel(JobExtract)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRunFullPipeline_RunsStagesInOrderAndSumsRecords(t *testing.T) {
	var mu sync.Mutex
	var order []string
	stage := func(name string, n int) Runner {
		return func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return n, nil
		}
	}
	fs := newFakeStore()
	o := New(fs, map[string]Runner{
		JobExtract:   stage(JobExtract, 1),
		JobConflicts: stage(JobConflicts, 2),
		JobDerive:    stage(JobDerive, 3),
		JobScore:     stage(JobScore, 4),
	}, nil, func() time.Time { return time.Unix(0, 0) })

	handle := &Handle{JobID: JobFullPipeline}
	total, err := o.runFullPipeline(context.Background(), handle, func() bool { return false })
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, []string{JobExtract, JobConflicts, JobDerive, JobScore}, order)
}

func TestRunFullPipeline_AbortsOnChildFailure(t *testing.T) {
	boom := errors.New("boom")
	o := New(newFakeStore(), map[string]Runner{
		JobExtract:   func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) { return 1, nil },
		JobConflicts: func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) { return 0, boom },
		JobDerive:    func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) { return 100, nil },
		JobScore:     func(ctx context.Context, checkCancelled func() bool, onProgress ProgressFunc) (int, error) { return 100, nil },
	}, nil, func() time.Time { return time.Unix(0, 0) })

	handle := &Handle{JobID: JobFullPipeline}
	total, err := o.runFullPipeline(context.Background(), handle, func() bool { return false })
	require.Error(t, err)
	assert.Equal(t, 1, total) // only extract's records counted before the abort
}

func TestHealthy_FalseWhenAnyStageFailed(t *testing.T) {
	status := map[string]StageStatus{
		JobExtract: {Last: &models.SyncStatus{State: models.SyncStateSuccess}},
		JobScore:   {Last: &models.SyncStatus{State: models.SyncStateFailed}},
	}
	assert.False(t, Healthy(status))
}

func TestHealthy_TrueWhenNoFailuresOrNoHistory(t *testing.T) {
	status := map[string]StageStatus{
		JobExtract: {Last: &models.SyncStatus{State: models.SyncStateSuccess}},
		JobScore:   {Last: nil},
	}
	assert.True(t, Healthy(status))
}
