package middleware

import (
	"net/http"
	"strings"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/auth"
	"commissioning-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the *auth.Principal
const PrincipalKey = "principal"

// AuthMiddleware checks the bearer token in the Authorization header.
// A missing or malformed header is 401, a token that fails verification 403.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, string(apperr.KindUnauthorized), "Authorization header required")
			return
		}

		// Check Bearer prefix
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.AbortWithError(c, http.StatusUnauthorized, string(apperr.KindUnauthorized), "Invalid authorization format. Use: Bearer <token>")
			return
		}

		// Validate token
		principal, err := verifier.Verify(parts[1])
		if err != nil {
			utils.AbortWithError(c, http.StatusForbidden, string(apperr.KindForbidden), "Invalid or expired token")
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// Actor returns the subject of the authenticated caller, or "anonymous".
func Actor(c *gin.Context) string {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*auth.Principal); ok && p.Subject != "" {
			return p.Subject
		}
	}
	return "anonymous"
}
