package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/assignment-portal-api/internal/access"
	"github.com/noah-isme/assignment-portal-api/internal/models"
)

func newOperationRouter(role models.UserRole, op access.Operation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/guarded",
		func(c *gin.Context) {
			if role != "" {
				c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
			}
		},
		RequireOperation(op),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

func TestRequireOperationRejectsAnonymous(t *testing.T) {
	r := newOperationRouter("", access.OpAssignmentCreate)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/guarded", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireOperationAllowsPermittedRole(t *testing.T) {
	r := newOperationRouter(models.RoleTeacher, access.OpAssignmentCreate)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/guarded", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireOperationNamesAllowedRoles(t *testing.T) {
	r := newOperationRouter(models.RoleStudent, access.OpAssignmentCreate)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/guarded", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "operation requires role TEACHER")
}
