package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"comanda/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError maps a domain error to its status code and aborts the chain.
// Unexpected errors are logged and hidden from the client.
func (a *API) respondError(c *gin.Context, err error) {
	var missingItem *models.MenuItemNotFoundError
	switch {
	case errors.As(err, &missingItem):
		// a bad line in the request body, not a missing resource
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAuth):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", models.ErrValidation, name)
	}
	return uint(id), nil
}
