package httpapi

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/models"
	"github.com/gieogita/portal-auth/internal/token"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"

	principalKey = "principal"
)

// TokenVerifier verifies an access token. Satisfied by *token.Issuer.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*token.Claims, error)
}

// PrincipalSource resolves the authenticated user by id. Satisfied by
// *services.AuthService.
type PrincipalSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// extractToken prefers the access-token cookie and falls back to the
// Authorization header. An empty result means no credential was presented.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// Authenticate gates protected routes. Missing, malformed, forged and expired
// tokens all yield the same 401. On success the full user row is re-fetched —
// stale token claims are never trusted for authorization — and attached to
// the request context.
func Authenticate(verifier TokenVerifier, principals PrincipalSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abortWithError(c, common.ErrUnauthenticated)
			return
		}

		claims, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			abortWithError(c, common.ErrUnauthenticated)
			return
		}

		user, err := principals.GetUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			// Deleted accounts fail the same way as bad tokens.
			abortWithError(c, common.ErrUnauthenticated)
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// RequireRole fails with 403 unless the resolved principal's role is in the
// allow-list. Must run after Authenticate.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := Principal(c)
		if !ok {
			abortWithError(c, common.ErrUnauthenticated)
			return
		}
		for _, role := range allowed {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, common.ErrForbidden)
	}
}

// Principal returns the authenticated user attached by Authenticate.
func Principal(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
