package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bookswap/internal/database/users"
	"github.com/openshelf/bookswap/internal/entities"
)

// The exchange core trusts the identity it is handed (the session layer in
// front of this service owns authentication). Callers identify themselves
// with the X-User-ID header; the middleware resolves the account so role
// and ban status travel with the request.
const (
	HeaderUserID = "X-User-ID"

	ContextKeyUser = "current_user"
)

// IdentityResolver looks up the acting user account.
type IdentityResolver interface {
	GetByID(id uint) (*entities.User, error)
}

// IdentityMiddleware resolves the acting user from the request and stores
// it on the context. Requests without a valid identity are rejected.
func IdentityMiddleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing " + HeaderUserID + " header"})
			return
		}

		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid " + HeaderUserID + " header"})
			return
		}

		user, err := resolver.GetByID(uint(id))
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown user"})
				return
			}
			respondInternalError(c, err, "resolve identity")
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// RequireAdmin rejects requests whose acting user is not an administrator.
// The role check happens here, at the boundary, never inside the exchange
// core.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != entities.UserRoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the resolved acting user, or nil when the identity
// middleware did not run.
func CurrentUser(c *gin.Context) *entities.User {
	value, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil
	}
	user, ok := value.(*entities.User)
	if !ok {
		return nil
	}
	return user
}
