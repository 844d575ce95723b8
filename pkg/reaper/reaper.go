// Package reaper periodically transitions stuck SyncStatus rows to
// timeout, grounded on the teacher's cleanup.Service retention loop
// (spec §4.8 "Stuck-job reaping").
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

const defaultInterval = 30 * time.Minute

// Reaper transitions SyncStatus rows stuck in `running` past
// JOB_TIMEOUT_HOURS to `timeout` (spec §4.8).
type Reaper struct {
	store    store.Store
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Reaper. timeout is JOB_TIMEOUT_HOURS (default 2h);
// interval is the scan period (default 30m).
func New(st store.Store, timeout, interval time.Duration, now func() time.Time, logger *slog.Logger) *Reaper {
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{store: st, timeout: timeout, interval: interval, now: now, logger: logger}
}

// Start launches the background reaping loop, running once immediately
// (spec §4.8 "every 30 min; also on startup").
func (r *Reaper) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	r.logger.Info("reaper started", "timeout", r.timeout, "interval", r.interval)
}

// Stop signals the reaping loop to exit and waits for it to finish.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	r.ReapOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReapOnce(ctx)
		}
	}
}

// ReapOnce performs a single scan, also exposed for the admin on-demand
// trigger (spec §4.8 "An admin endpoint may trigger it on demand").
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	stuck, err := r.store.ListStuckRunningSyncs(ctx, r.timeout, r.now())
	if err != nil {
		return 0, fmt.Errorf("reaper: list stuck syncs: %w", err)
	}

	now := r.now()
	hours := int(r.timeout.Hours())
	reaped := 0
	for _, sync := range stuck {
		msg := fmt.Sprintf("Job timed out after %d hours of running", hours)
		if err := r.store.CompleteSyncStatus(ctx, sync.ID, models.SyncStateTimeout, 0, msg, now); err != nil {
			r.logger.Warn("reaper: failed to mark sync timed out", "sync_id", sync.ID, "error", err)
			continue
		}
		r.logger.Warn("reaper: marked sync as timed out", "sync_id", sync.ID, "sync_type", sync.SyncType, "started_at", sync.StartedAt)
		reaped++
	}
	return reaped, nil
}
