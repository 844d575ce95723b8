package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/truthledger/truthledger/pkg/orchestrator"
)

// pipelineJobIDs is the fixed job set surfaced by /pipeline/stages and
// /pipeline/jobs (spec §4.8 "Job definitions").
var pipelineJobIDs = []string{
	orchestrator.JobURLIngest,
	orchestrator.JobFeedIngest,
	orchestrator.JobExtract,
	orchestrator.JobConflicts,
	orchestrator.JobDerive,
	orchestrator.JobScore,
	orchestrator.JobFullPipeline,
}

func (s *Server) pipelineStages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stages": pipelineJobIDs})
}

func (s *Server) pipelineStatus(c *gin.Context) {
	status, healthy, err := s.pipeline.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": status, "healthy": healthy})
}

func (s *Server) pipelineHistory(c *gin.Context) {
	jobID := c.Query("job_id")
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := s.store.ListSyncHistory(c.Request.Context(), jobID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) pipelineJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": pipelineJobIDs})
}

func (s *Server) pipelineRunningJobs(c *gin.Context) {
	status, _, err := s.pipeline.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	running := make([]string, 0)
	for jobID, st := range status {
		if st.Live != nil && st.Live.Status == orchestrator.StatusRunning {
			running = append(running, jobID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"running": running})
}

type runJobRequest struct {
	TriggeredBy string `json:"triggered_by"`
}

func (s *Server) runJob(c *gin.Context) {
	var req runJobRequest
	_ = c.ShouldBindJSON(&req)
	if req.TriggeredBy == "" {
		req.TriggeredBy = "api"
	}

	runID, err := s.pipeline.RunJob(c.Request.Context(), c.Param("jobId"), req.TriggeredBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (s *Server) cancelJob(c *gin.Context) {
	if err := s.pipeline.CancelJob(c.Param("jobId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) cleanupJobs(c *gin.Context) {
	count, err := s.pipeline.Cleanup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reaped": count})
}
