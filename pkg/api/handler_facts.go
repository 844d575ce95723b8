package api

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/truthledger/truthledger/pkg/resolve"
)

func parseTruthSlider(c *gin.Context) (*float64, error) {
	raw := c.Query("truth_slider")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// resolveByHash handles GET /facts/:claimKeyHash?truth_slider= (spec §6,
// §4.7 "claimKeyHash" lookup path).
func (s *Server) resolveByHash(c *gin.Context) {
	hash, err := hex.DecodeString(c.Param("claimKeyHash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "claimKeyHash must be hex-encoded"})
		return
	}
	slider, err := parseTruthSlider(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "truth_slider must be a number"})
		return
	}

	resp, err := s.resolver.Resolve(c.Request.Context(), resolve.Query{ClaimKeyHash: hash, TruthSlider: slider})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// resolveByDomainField handles GET
// /entities/:type/:domainId/field/:fieldName?truth_slider= (spec §6,
// §4.7 "entityType+domainId+fieldName" lookup path).
func (s *Server) resolveByDomainField(c *gin.Context) {
	slider, err := parseTruthSlider(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "truth_slider must be a number"})
		return
	}

	resp, err := s.resolver.Resolve(c.Request.Context(), resolve.Query{
		EntityType:  c.Param("type"),
		DomainID:    c.Param("domainId"),
		FieldName:   c.Param("fieldName"),
		TruthSlider: slider,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// factsForEntity handles GET /entities/:id/facts, resolving every field
// link registered for the entity (spec §6 "GET /entities/{id}/facts").
func (s *Server) factsForEntity(c *gin.Context) {
	entityID := c.Param("id")
	slider, err := parseTruthSlider(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "truth_slider must be a number"})
		return
	}

	if _, err := s.catalog.GetEntity(c.Request.Context(), entityID); err != nil {
		respondError(c, err)
		return
	}

	attrs, err := s.catalog.ListAttributes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]*resolve.Response, 0, len(attrs))
	for _, attr := range attrs {
		resp, err := s.resolver.Resolve(c.Request.Context(), resolve.Query{
			EntityID:    entityID,
			FieldName:   attr.CanonicalName,
			TruthSlider: slider,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if resp.StatusDisplay == resolve.StatusUnknown {
			continue
		}
		results = append(results, resp)
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": entityID, "facts": results})
}
