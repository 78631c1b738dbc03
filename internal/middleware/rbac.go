package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/access"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

// RequireOperation gates a route on the access policy table. The caller must
// already be authenticated; an unknown operation denies everyone.
func RequireOperation(op access.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !access.Allowed(claims.Role, op) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, forbiddenMessage(op)))
			c.Abort()
			return
		}

		c.Next()
	}
}

func forbiddenMessage(op access.Operation) string {
	roles := access.RolesFor(op)
	if len(roles) == 0 {
		return "operation is not permitted"
	}
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return fmt.Sprintf("operation requires role %s", strings.Join(parts, " or "))
}
