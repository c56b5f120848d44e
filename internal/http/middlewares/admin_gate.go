package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pitchndeck/api/internal/domain/user"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/gin-gonic/gin"
)

// RoleReader re-fetches the live account for a session identity.
type RoleReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AdminGate struct {
	users RoleReader
}

func NewAdminGate(users RoleReader) *AdminGate {
	return &AdminGate{users: users}
}

// RequireAdmin runs after RequireSession. The token's role claim is never
// trusted for authorization: the gate re-reads the account and requires the
// live role to be admin, so a demotion or deactivation after token issuance
// takes effect immediately.
func (g *AdminGate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := EmailFromContext(c)

		if !ok || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		live, err := g.users.GetByEmail(ctx, email)

		if err != nil {
			// A missing account is a denial; anything else is the store
			// failing, and must not masquerade as one.
			if errors.Is(err, mongodb.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": gin.H{
						"code":    "forbidden",
						"message": "Admin access required",
					},
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not verify admin access",
				},
			})
			return
		}

		if !live.IsAdmin() || !live.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin access required",
				},
			})
			return
		}

		c.Next()
	}
}
