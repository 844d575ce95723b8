package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truthledger/truthledger/pkg/orchestrator"
	"github.com/truthledger/truthledger/pkg/services"
)

// respondError maps the services package's error taxonomy onto HTTP
// status codes (spec §7 error taxonomy: NotFound→404, ValidationError→400,
// Conflict→409).
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyExists), errors.Is(err, orchestrator.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsValidationError(err), errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
