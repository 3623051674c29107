package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// principal returns the caller's claims or writes 401 and returns false.
func principal(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func auditMeta(c *gin.Context) models.AuditMeta {
	return models.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return false
	}
	return true
}
