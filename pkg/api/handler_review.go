package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) listConflictGroups(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := s.review.ListConflictGroups(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getConflictGroup(c *gin.Context) {
	group, err := s.review.GetConflictGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	claims, err := s.review.ClaimsForGroup(c.Request.Context(), group.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "claims": claims})
}

func (s *Server) listReviewQueue(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := s.review.ListItems(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type resolveReviewRequest struct {
	Status     string `json:"status" binding:"required"`
	ResolvedBy string `json:"resolved_by"`
}

func (s *Server) resolveReviewItem(c *gin.Context) {
	var req resolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.review.Resolve(c.Request.Context(), c.Param("id"), req.Status, req.ResolvedBy); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
