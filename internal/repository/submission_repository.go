package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// ErrDuplicateSubmission is returned when the unique index on
// (assignment_id, student_id) rejects an insert. The index is the
// authoritative guard; callers' existence checks are only a fast path.
var ErrDuplicateSubmission = errors.New("submission already exists for assignment and student")

const pqUniqueViolation = "23505"

// SubmissionRepository provides database access for submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission. A unique index violation on
// (assignment_id, student_id) surfaces as ErrDuplicateSubmission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO submissions (id, assignment_id, student_id, answer_text, reviewed, submitted_at) VALUES (:id, :assignment_id, :student_id, :answer_text, :reviewed, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, answer_text, reviewed, submitted_at FROM submissions WHERE id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &submission, nil
}

// FindByAssignmentAndStudent returns the student's submission for an assignment.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, answer_text, reviewed, submitted_at FROM submissions WHERE assignment_id = $1 AND student_id = $2 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by assignment and student: %w", err)
	}
	return &submission, nil
}

// ListDetailsByAssignment returns submissions joined with the submitting
// student's name and email. Credential columns are never selected.
func (r *SubmissionRepository) ListDetailsByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.answer_text, s.reviewed, s.submitted_at, u.full_name AS student_name, u.email AS student_email FROM submissions s JOIN users u ON u.id = s.student_id WHERE s.assignment_id = $1 ORDER BY s.submitted_at ASC`
	details := []models.SubmissionDetail{}
	if err := r.db.SelectContext(ctx, &details, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submission details: %w", err)
	}
	return details, nil
}

// MarkReviewed flips the reviewed flag to true. The update is idempotent:
// re-reviewing a reviewed submission leaves it reviewed.
func (r *SubmissionRepository) MarkReviewed(ctx context.Context, id string) error {
	const query = `UPDATE submissions SET reviewed = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark submission reviewed: %w", err)
	}
	return nil
}
