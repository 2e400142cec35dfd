package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
	"github.com/noah-isme/fitcoach-api/pkg/response"
)

// GymParam is the route parameter naming the gym a request targets.
const GymParam = "gymId"

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GymScope rejects staff whose token is bound to a different gym than the one in the path.
func GymScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		gymID := c.Param(GymParam)
		if gymID == "" || claims.GymID != gymID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not a member of this gym's staff"))
			c.Abort()
			return
		}
		c.Next()
	}
}
