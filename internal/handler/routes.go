package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/access"
	"github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/service"
)

// Routes bundles the handlers and the auth service backing the JWT middleware.
// Users backs the request-level audit trail on export downloads; the services
// record their own audit entries for all other mutations.
type Routes struct {
	Auth        *AuthHandler
	Assignments *AssignmentHandler
	Submissions *SubmissionHandler
	AuthService *service.AuthService
	Users       *repository.UserRepository
}

// Register mounts all API routes under the given prefix.
func (rt Routes) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register", rt.Auth.Register)
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/refresh", rt.Auth.Refresh)
	auth.POST("/logout", middleware.JWT(rt.AuthService), rt.Auth.Logout)

	assignments := api.Group("/assignments", middleware.JWT(rt.AuthService))
	assignments.POST("", middleware.RequireOperation(access.OpAssignmentCreate), rt.Assignments.Create)
	assignments.GET("", middleware.RequireOperation(access.OpAssignmentList), rt.Assignments.List)
	assignments.PUT("/:id", middleware.RequireOperation(access.OpAssignmentUpdate), rt.Assignments.Update)
	assignments.DELETE("/:id", middleware.RequireOperation(access.OpAssignmentDelete), rt.Assignments.Delete)
	assignments.PATCH("/:id/status", middleware.RequireOperation(access.OpAssignmentTransition), rt.Assignments.Transition)
	assignments.GET("/:id/submissions", middleware.RequireOperation(access.OpAssignmentSubmissions), rt.Assignments.Submissions)

	exportChain := []gin.HandlerFunc{middleware.RequireOperation(access.OpAssignmentSubmissions)}
	if rt.Users != nil {
		exportChain = append(exportChain, middleware.Audit(rt.Users, models.AuditActionSubmissionsExport, "assignment"))
	}
	exportChain = append(exportChain, rt.Assignments.Export)
	assignments.GET("/:id/submissions/export", exportChain...)

	submissions := api.Group("/submissions", middleware.JWT(rt.AuthService))
	submissions.POST("", middleware.RequireOperation(access.OpSubmissionCreate), rt.Submissions.Submit)
	submissions.GET("/mine/:assignment_id", middleware.RequireOperation(access.OpSubmissionMine), rt.Submissions.Mine)
	submissions.PATCH("/:id/review", middleware.RequireOperation(access.OpSubmissionReview), rt.Submissions.Review)
}
