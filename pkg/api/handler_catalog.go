package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truthledger/truthledger/pkg/models"
)

func (s *Server) listEntities(c *gin.Context) {
	out, err := s.catalog.ListEntities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getEntity(c *gin.Context) {
	e, err := s.catalog.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) createEntity(c *gin.Context) {
	var e models.Entity
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.catalog.CreateEntity(c.Request.Context(), &e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) updateEntity(c *gin.Context) {
	var e models.Entity
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e.ID = c.Param("id")
	if err := s.catalog.UpdateEntity(c.Request.Context(), &e); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteEntity(c *gin.Context) {
	if err := s.catalog.DeleteEntity(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listAttributes(c *gin.Context) {
	out, err := s.catalog.ListAttributes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getAttribute(c *gin.Context) {
	a, err := s.catalog.GetAttribute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) createAttribute(c *gin.Context) {
	var a models.Attribute
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.catalog.CreateAttribute(c.Request.Context(), &a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) updateAttribute(c *gin.Context) {
	var a models.Attribute
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.ID = c.Param("id")
	if err := s.catalog.UpdateAttribute(c.Request.Context(), &a); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteAttribute(c *gin.Context) {
	if err := s.catalog.DeleteAttribute(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listSources(c *gin.Context) {
	out, err := s.catalog.ListSources(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSource(c *gin.Context) {
	src, err := s.catalog.GetSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

func (s *Server) createSource(c *gin.Context) {
	var src models.Source
	if err := c.ShouldBindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.catalog.CreateSource(c.Request.Context(), &src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) updateSource(c *gin.Context) {
	var src models.Source
	if err := c.ShouldBindJSON(&src); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src.ID = c.Param("id")
	if err := s.catalog.UpdateSource(c.Request.Context(), &src); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteSource(c *gin.Context) {
	if err := s.catalog.DeleteSource(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listSourceFeeds(c *gin.Context) {
	out, err := s.catalog.ListSourceFeeds(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSourceFeed(c *gin.Context) {
	var f models.SourceFeed
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.SourceID = c.Param("id")
	id, err := s.catalog.CreateSourceFeed(c.Request.Context(), &f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) updateSourceFeed(c *gin.Context) {
	var f models.SourceFeed
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.ID = c.Param("feedId")
	if err := s.catalog.UpdateSourceFeed(c.Request.Context(), &f); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteSourceFeed(c *gin.Context) {
	if err := s.catalog.DeleteSourceFeed(c.Request.Context(), c.Param("feedId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listSourceURLs(c *gin.Context) {
	out, err := s.catalog.ListSourceURLs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSourceURL(c *gin.Context) {
	var u models.SourceURL
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u.SourceID = c.Param("id")
	id, err := s.catalog.CreateSourceURL(c.Request.Context(), &u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) deleteSourceURL(c *gin.Context) {
	if err := s.catalog.DeleteSourceURL(c.Request.Context(), c.Param("urlId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
