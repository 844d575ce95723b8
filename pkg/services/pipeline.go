package services

import (
	"context"
	"errors"

	"github.com/truthledger/truthledger/pkg/orchestrator"
	"github.com/truthledger/truthledger/pkg/reaper"
)

// PipelineService is the admin-facing facade over the JobOrchestrator and
// StuckJobReaper (spec §4.8, §6 "Pipeline" HTTP surface).
type PipelineService struct {
	orchestrator *orchestrator.Orchestrator
	reaper       *reaper.Reaper
}

func NewPipelineService(o *orchestrator.Orchestrator, r *reaper.Reaper) *PipelineService {
	return &PipelineService{orchestrator: o, reaper: r}
}

func (p *PipelineService) RunJob(ctx context.Context, jobID, triggeredBy string) (string, error) {
	runID, _, err := p.orchestrator.Run(ctx, jobID, triggeredBy)
	if errors.Is(err, orchestrator.ErrUnknownJob) {
		return "", ErrInvalidInput
	}
	if errors.Is(err, orchestrator.ErrAlreadyRunning) {
		return "", ErrAlreadyExists
	}
	return runID, err
}

func (p *PipelineService) CancelJob(jobID string) error {
	err := p.orchestrator.Cancel(jobID)
	if errors.Is(err, orchestrator.ErrNotRunning) {
		return ErrNotFound
	}
	return err
}

func (p *PipelineService) Status(ctx context.Context) (map[string]orchestrator.StageStatus, bool, error) {
	status, err := p.orchestrator.GetStatus(ctx)
	if err != nil {
		return nil, false, err
	}
	return status, orchestrator.Healthy(status), nil
}

// Cleanup triggers an on-demand stuck-job sweep, the admin-facing
// "jobs/cleanup" action backed by the same reaper the background ticker
// uses (spec §4.8 "stuck-job reaping ... admin-triggerable on demand").
func (p *PipelineService) Cleanup(ctx context.Context) (int, error) {
	return p.reaper.ReapOnce(ctx)
}
