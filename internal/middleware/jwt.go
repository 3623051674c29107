package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// streamTokenParam carries the access token for EventSource clients, which
// cannot set an Authorization header.
const streamTokenParam = "access_token"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return authenticate(auth, false)
}

// StreamJWT is JWT for the push feed: the token may also arrive as the
// access_token query parameter.
func StreamJWT(auth tokenValidator) gin.HandlerFunc {
	return authenticate(auth, true)
}

func authenticate(auth tokenValidator, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := bearerToken(header)
		switch {
		case ok:
		case header == "" && allowQuery && c.Query(streamTokenParam) != "":
			token = c.Query(streamTokenParam)
		case header == "":
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
