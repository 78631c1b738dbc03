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
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
)

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	MarkReviewed(ctx context.Context, id string) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// SubmitRequest is the payload for handing in an answer.
type SubmitRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	AnswerText   string `json:"answer_text" validate:"required"`
}

// SubmissionService enforces submission availability and review rules.
type SubmissionService struct {
	repo        submissionStore
	assignments assignmentReader
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(repo submissionStore, assignments assignmentReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{repo: repo, assignments: assignments, audit: audit, validator: validate, logger: logger}
}

// Submit hands in an answer for a Published assignment. Draft and Completed
// assignments reject new submissions, as do assignments that do not exist;
// all three cases read as "not available" so students cannot probe drafts.
// The duplicate check here is only a fast path: the unique index on
// (assignment_id, student_id) is what guarantees at-most-one under
// concurrent submits.
func (s *SubmissionService) Submit(ctx context.Context, studentID string, req SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.assignments.FindByID(ctx, req.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotAvailable
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status != models.StatusPublished {
		return nil, appErrors.ErrNotAvailable
	}

	if _, err := s.repo.FindByAssignmentAndStudent(ctx, req.AssignmentID, studentID); err == nil {
		return nil, appErrors.ErrDuplicateSubmission
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	submission := &models.Submission{
		AssignmentID: req.AssignmentID,
		StudentID:    studentID,
		AnswerText:   req.AnswerText,
		Reviewed:     false,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, appErrors.ErrDuplicateSubmission
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	s.recordAudit(ctx, studentID, models.AuditActionSubmissionCreate, submission.ID, fmt.Sprintf(`{"assignment_id":%q}`, req.AssignmentID))
	return submission, nil
}

// Mine returns the student's own submission for the assignment, or nil when
// none exists yet. Absence is not an error.
func (s *SubmissionService) Mine(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	submission, err := s.repo.FindByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// Review marks a submission as reviewed. The reviewing teacher must own the
// parent assignment; an ownership mismatch is forbidden. Reviewing an
// already-reviewed submission succeeds and leaves the flag set.
func (s *SubmissionService) Review(ctx context.Context, teacherID, submissionID string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another teacher's assignment")
	}

	if !submission.Reviewed {
		if err := s.repo.MarkReviewed(ctx, submissionID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark submission reviewed")
		}
		s.recordAudit(ctx, teacherID, models.AuditActionSubmissionReviewed, submissionID, "")
	}

	submission.Reviewed = true
	return submission, nil
}

func (s *SubmissionService) recordAudit(ctx context.Context, actorID, action, resourceID, values string) {
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
		Resource:   "submission",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.Error(err))
	}
}
