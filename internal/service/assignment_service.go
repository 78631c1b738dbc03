package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/export"
)

// publishedAssignmentsCacheKey caches the student-facing listing. It is
// invalidated on every assignment mutation.
const publishedAssignmentsCacheKey = "assignments:published"

type assignmentStore interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, from, to models.AssignmentStatus) (bool, error)
}

type submissionDetailReader interface {
	ListDetailsByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateAssignmentRequest is the payload for creating an assignment.
type CreateAssignmentRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateAssignmentRequest patches the content of a draft assignment.
// Status and ownership are not patchable through this path.
type UpdateAssignmentRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// TransitionAssignmentRequest asks for a lifecycle transition.
type TransitionAssignmentRequest struct {
	Status models.AssignmentStatus `json:"status" validate:"required"`
}

// AssignmentService enforces the assignment lifecycle rules.
type AssignmentService struct {
	repo        assignmentStore
	submissions submissionDetailReader
	audit       auditLogger
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentStore, submissions submissionDetailReader, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, submissions: submissions, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Create stores a new assignment. It always starts in Draft and is owned
// by the calling teacher.
func (s *AssignmentService) Create(ctx context.Context, teacherID string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment := &models.Assignment{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      models.StatusDraft,
		TeacherID:   teacherID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.recordAudit(ctx, teacherID, models.AuditActionAssignmentCreate, assignment.ID, fmt.Sprintf(`{"title":%q}`, assignment.Title))
	return assignment, nil
}

// List returns assignments visible to the actor. Teachers see their own
// assignments with an optional status filter; students see only Published
// assignments and the filter is ignored. Both orderings are newest first.
func (s *AssignmentService) List(ctx context.Context, claims *models.JWTClaims, statusFilter *models.AssignmentStatus) ([]models.Assignment, error) {
	if claims.Role == models.RoleTeacher {
		if statusFilter != nil && !statusFilter.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		assignments, err := s.repo.List(ctx, models.AssignmentFilter{TeacherID: claims.UserID, Status: statusFilter})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
		}
		return assignments, nil
	}

	var cached []models.Assignment
	if hit, err := s.cache.Get(ctx, publishedAssignmentsCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	published := models.StatusPublished
	assignments, err := s.repo.List(ctx, models.AssignmentFilter{Status: &published})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	if err := s.cache.Set(ctx, publishedAssignmentsCacheKey, assignments, 0); err != nil {
		s.logger.Warn("failed to cache published assignments", zap.Error(err))
	}
	return assignments, nil
}

// Update patches a draft assignment's content. Ownership mismatches are
// rejected as forbidden.
func (s *AssignmentService) Update(ctx context.Context, teacherID, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, err := s.loadOwned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status != models.StatusDraft {
		return nil, appErrors.ErrNotEditable
	}

	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	s.invalidateListings(ctx)
	s.recordAudit(ctx, teacherID, models.AuditActionAssignmentUpdate, assignment.ID, fmt.Sprintf(`{"title":%q}`, assignment.Title))
	return assignment, nil
}

// Delete removes a draft assignment owned by the caller.
func (s *AssignmentService) Delete(ctx context.Context, teacherID, id string) error {
	assignment, err := s.loadOwned(ctx, teacherID, id)
	if err != nil {
		return err
	}
	if assignment.Status != models.StatusDraft {
		return appErrors.ErrNotDeletable
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}

	s.invalidateListings(ctx)
	s.recordAudit(ctx, teacherID, models.AuditActionAssignmentDelete, id, "")
	return nil
}

// Transition advances the assignment along the lifecycle. Only
// Draft→Published and Published→Completed are legal; everything else is an
// invalid transition and leaves the status untouched. The store update is
// conditional on the current status so concurrent transitions cannot be
// lost: the losing request observes zero affected rows.
func (s *AssignmentService) Transition(ctx context.Context, teacherID, id string, target models.AssignmentStatus) (*models.Assignment, error) {
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown target status")
	}

	assignment, err := s.loadOwned(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(assignment.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", assignment.Status, target))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, assignment.Status, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "assignment status changed concurrently")
	}

	assignment.Status = target
	s.invalidateListings(ctx)
	s.recordAudit(ctx, teacherID, models.AuditActionAssignmentStatus, id, fmt.Sprintf(`{"status":%q}`, target))
	return assignment, nil
}

// Submissions returns the submissions for an owned assignment joined with
// each student's name and email. The listing stays available after the
// assignment completes.
func (s *AssignmentService) Submissions(ctx context.Context, teacherID, assignmentID string) ([]models.SubmissionDetail, error) {
	if _, err := s.loadOwned(ctx, teacherID, assignmentID); err != nil {
		return nil, err
	}

	details, err := s.submissions.ListDetailsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return details, nil
}

// ExportSubmissions renders an owned assignment's submissions as CSV or PDF.
func (s *AssignmentService) ExportSubmissions(ctx context.Context, teacherID, assignmentID, format string) ([]byte, string, error) {
	assignment, err := s.loadOwned(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, "", err
	}

	details, err := s.submissions.ListDetailsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Submitted At", "Reviewed", "Answer"},
	}
	for _, d := range details {
		reviewed := "no"
		if d.Reviewed {
			reviewed = "yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      d.StudentName,
			"Email":        d.StudentEmail,
			"Submitted At": d.SubmittedAt.UTC().Format(time.RFC3339),
			"Reviewed":     reviewed,
			"Answer":       d.AnswerText,
		})
	}

	switch format {
	case "csv":
		payload, err := export.CSV(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.PDF(dataset, fmt.Sprintf("%s submissions", assignment.Title))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// loadOwned fetches an assignment and verifies ownership. Missing records
// report NotFound; records owned by another teacher report Forbidden.
func (s *AssignmentService) loadOwned(ctx context.Context, teacherID, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment is owned by another teacher")
	}
	return assignment, nil
}

func (s *AssignmentService) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, publishedAssignmentsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate assignment cache", zap.Error(err))
	}
}

func (s *AssignmentService) recordAudit(ctx context.Context, actorID, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if values != "" {
		payload = []byte(values)
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "assignment",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}
}
