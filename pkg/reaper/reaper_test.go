package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

// fakeStore embeds the Store interface (nil) and overrides only the
// methods ReapOnce exercises; any other call panics, which is fine since
// these tests never reach them.
type fakeStore struct {
	store.Store
	stuck     []*models.SyncStatus
	completed []string
}

func (f *fakeStore) ListStuckRunningSyncs(ctx context.Context, olderThan time.Duration, now time.Time) ([]*models.SyncStatus, error) {
	return f.stuck, nil
}

func (f *fakeStore) CompleteSyncStatus(ctx context.Context, id, state string, recordsSynced int, errMsg string, now time.Time) error {
	f.completed = append(f.completed, id)
	return nil
}

func TestReapOnce_MarksStuckSyncsAsTimedOut(t *testing.T) {
	fs := &fakeStore{
		stuck: []*models.SyncStatus{
			{ID: "a", SyncType: "extract"},
			{ID: "b", SyncType: "score"},
		},
	}
	r := New(fs, time.Hour, time.Hour, func() time.Time { return time.Unix(0, 0) }, nil)

	count, err := r.ReapOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"a", "b"}, fs.completed)
}

func TestReapOnce_NoStuckSyncsIsNoop(t *testing.T) {
	fs := &fakeStore{}
	r := New(fs, time.Hour, time.Hour, nil, nil)

	count, err := r.ReapOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
