package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/access"
	internalmiddleware "github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
)

func TestPortalRoutesIntegration(t *testing.T) {
	router := buildPortalRouter()

	t.Run("create assignment unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/assignments", bytes.NewBufferString(`{"title":"HW1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("create assignment forbidden for students", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/assignments", bytes.NewBufferString(`{"title":"HW1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("create assignment success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/assignments", bytes.NewBufferString(`{"title":"HW1","description":"Read chapter 3"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"Draft"`)
	})

	t.Run("list assignments allowed for both roles", func(t *testing.T) {
		for _, role := range []models.UserRole{models.RoleTeacher, models.RoleStudent} {
			req, _ := http.NewRequest(http.MethodGet, "/assignments", nil)
			req.Header.Set("X-Test-Role", string(role))
			resp := performRequest(router, req)
			require.Equal(t, http.StatusOK, resp.Code, "role %s", role)
		}
	})

	t.Run("transition forbidden for students", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/assignments/a1/status", bytes.NewBufferString(`{"status":"Published"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("transition success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/assignments/a1/status", bytes.NewBufferString(`{"status":"Published"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"Published"`)
	})

	t.Run("submit forbidden for teachers", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/submissions", bytes.NewBufferString(`{"assignment_id":"a1","answer_text":"42"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("submit success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/submissions", bytes.NewBufferString(`{"assignment_id":"a1","answer_text":"42"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("duplicate submit conflicts", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/submissions", bytes.NewBufferString(`{"assignment_id":"dup","answer_text":"42"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "DUPLICATE_SUBMISSION")
	})

	t.Run("review forbidden for students", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/submissions/sub1/review", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("review success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, "/submissions/sub1/review", nil)
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"reviewed":true`)
	})

	t.Run("export submissions csv", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/assignments/a1/submissions/export?format=csv", nil)
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	})
}

func buildPortalRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	assignmentHandler := NewAssignmentHandler(&assignmentServiceIntegrationMock{})
	submissionHandler := NewSubmissionHandler(&submissionServiceIntegrationMock{})

	assignments := router.Group("/assignments")
	assignments.POST("", internalmiddleware.RequireOperation(access.OpAssignmentCreate), assignmentHandler.Create)
	assignments.GET("", internalmiddleware.RequireOperation(access.OpAssignmentList), assignmentHandler.List)
	assignments.PATCH("/:id/status", internalmiddleware.RequireOperation(access.OpAssignmentTransition), assignmentHandler.Transition)
	assignments.GET("/:id/submissions", internalmiddleware.RequireOperation(access.OpAssignmentSubmissions), assignmentHandler.Submissions)
	assignments.GET("/:id/submissions/export", internalmiddleware.RequireOperation(access.OpAssignmentSubmissions), assignmentHandler.Export)

	submissions := router.Group("/submissions")
	submissions.POST("", internalmiddleware.RequireOperation(access.OpSubmissionCreate), submissionHandler.Submit)
	submissions.GET("/mine/:assignment_id", internalmiddleware.RequireOperation(access.OpSubmissionMine), submissionHandler.Mine)
	submissions.PATCH("/:id/review", internalmiddleware.RequireOperation(access.OpSubmissionReview), submissionHandler.Review)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type assignmentServiceIntegrationMock struct{}

func (assignmentServiceIntegrationMock) Create(ctx context.Context, teacherID string, req service.CreateAssignmentRequest) (*models.Assignment, error) {
	return &models.Assignment{ID: "a1", Title: req.Title, Status: models.StatusDraft, TeacherID: teacherID}, nil
}

func (assignmentServiceIntegrationMock) List(ctx context.Context, claims *models.JWTClaims, statusFilter *models.AssignmentStatus) ([]models.Assignment, error) {
	return []models.Assignment{{ID: "a1", Status: models.StatusPublished}}, nil
}

func (assignmentServiceIntegrationMock) Update(ctx context.Context, teacherID, id string, req service.UpdateAssignmentRequest) (*models.Assignment, error) {
	return &models.Assignment{ID: id, Title: req.Title, Status: models.StatusDraft, TeacherID: teacherID}, nil
}

func (assignmentServiceIntegrationMock) Delete(ctx context.Context, teacherID, id string) error {
	return nil
}

func (assignmentServiceIntegrationMock) Transition(ctx context.Context, teacherID, id string, target models.AssignmentStatus) (*models.Assignment, error) {
	return &models.Assignment{ID: id, Status: target, TeacherID: teacherID}, nil
}

func (assignmentServiceIntegrationMock) Submissions(ctx context.Context, teacherID, assignmentID string) ([]models.SubmissionDetail, error) {
	return []models.SubmissionDetail{}, nil
}

func (assignmentServiceIntegrationMock) ExportSubmissions(ctx context.Context, teacherID, assignmentID, format string) ([]byte, string, error) {
	return []byte("Student,Email\n"), "text/csv", nil
}

type submissionServiceIntegrationMock struct{}

func (submissionServiceIntegrationMock) Submit(ctx context.Context, studentID string, req service.SubmitRequest) (*models.Submission, error) {
	if req.AssignmentID == "dup" {
		return nil, appErrors.ErrDuplicateSubmission
	}
	return &models.Submission{ID: "sub1", AssignmentID: req.AssignmentID, StudentID: studentID, AnswerText: req.AnswerText}, nil
}

func (submissionServiceIntegrationMock) Mine(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	return nil, nil
}

func (submissionServiceIntegrationMock) Review(ctx context.Context, teacherID, submissionID string) (*models.Submission, error) {
	return &models.Submission{ID: submissionID, Reviewed: true}, nil
}
