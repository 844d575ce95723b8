// Package api exposes the pipeline and fact-resolution surface over
// HTTP, following the teacher's gin-based adapter layer (spec §6 "HTTP
// surface").
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truthledger/truthledger/pkg/resolve"
	"github.com/truthledger/truthledger/pkg/services"
	"github.com/truthledger/truthledger/pkg/store"
)

// Server wires every service the HTTP surface depends on into a gin
// engine.
type Server struct {
	engine   *gin.Engine
	store    store.Store
	catalog  *services.CatalogService
	review   *services.ReviewService
	pipeline *services.PipelineService
	resolver *resolve.Resolver
	logger   *slog.Logger
}

func NewServer(st store.Store, catalog *services.CatalogService, review *services.ReviewService,
	pipeline *services.PipelineService, resolver *resolve.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:   gin.Default(),
		store:    st,
		catalog:  catalog,
		review:   review,
		pipeline: pipeline,
		resolver: resolver,
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")

	v1.GET("/facts/:claimKeyHash", s.resolveByHash)
	v1.GET("/entities/:type/:domainId/field/:fieldName", s.resolveByDomainField)
	v1.GET("/entities/:id/facts", s.factsForEntity)

	v1.GET("/entities", s.listEntities)
	v1.POST("/entities", s.createEntity)
	v1.GET("/entities/:id", s.getEntity)
	v1.PUT("/entities/:id", s.updateEntity)
	v1.DELETE("/entities/:id", s.deleteEntity)

	v1.GET("/attributes", s.listAttributes)
	v1.POST("/attributes", s.createAttribute)
	v1.GET("/attributes/:id", s.getAttribute)
	v1.PUT("/attributes/:id", s.updateAttribute)
	v1.DELETE("/attributes/:id", s.deleteAttribute)

	v1.GET("/sources", s.listSources)
	v1.POST("/sources", s.createSource)
	v1.GET("/sources/:id", s.getSource)
	v1.PUT("/sources/:id", s.updateSource)
	v1.DELETE("/sources/:id", s.deleteSource)

	v1.GET("/sources/:id/feeds", s.listSourceFeeds)
	v1.POST("/sources/:id/feeds", s.createSourceFeed)
	v1.PUT("/feeds/:feedId", s.updateSourceFeed)
	v1.DELETE("/feeds/:feedId", s.deleteSourceFeed)

	v1.GET("/sources/:id/urls", s.listSourceURLs)
	v1.POST("/sources/:id/urls", s.createSourceURL)
	v1.DELETE("/urls/:urlId", s.deleteSourceURL)

	v1.GET("/conflict-groups", s.listConflictGroups)
	v1.GET("/conflict-groups/:id", s.getConflictGroup)

	v1.GET("/review-queue", s.listReviewQueue)
	v1.POST("/review-queue/:id/resolve", s.resolveReviewItem)

	pipeline := v1.Group("/pipeline")
	pipeline.GET("/stages", s.pipelineStages)
	pipeline.GET("/status", s.pipelineStatus)
	pipeline.GET("/history", s.pipelineHistory)
	pipeline.GET("/jobs", s.pipelineJobs)
	pipeline.GET("/jobs/running", s.pipelineRunningJobs)
	pipeline.POST("/jobs/:jobId/run", s.runJob)
	pipeline.POST("/jobs/:jobId/cancel", s.cancelJob)
	pipeline.POST("/jobs/cleanup", s.cleanupJobs)
}

func (s *Server) health(c *gin.Context) {
	_, healthy, err := s.pipeline.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
