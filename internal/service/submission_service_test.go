package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
)

type mockSubmissionRepo struct {
	submissions map[string]models.Submission
	seq         int
	createErr   error
	reviewCalls int
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.submissions == nil {
		m.submissions = make(map[string]models.Submission)
	}
	for _, existing := range m.submissions {
		if existing.AssignmentID == submission.AssignmentID && existing.StudentID == submission.StudentID {
			return repository.ErrDuplicateSubmission
		}
	}
	m.seq++
	submission.ID = "sub" + string(rune('0'+m.seq))
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		found := s
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) MarkReviewed(ctx context.Context, id string) error {
	m.reviewCalls++
	s, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Reviewed = true
	m.submissions[id] = s
	return nil
}

func newSubmissionService(repo *mockSubmissionRepo, assignments *mockAssignmentRepo) (*SubmissionService, *mockAudit) {
	audit := &mockAudit{}
	svc := NewSubmissionService(repo, assignments, audit, validator.New(), zap.NewNop())
	return svc, audit
}

func TestSubmitToPublishedAssignment(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	repo := &mockSubmissionRepo{}
	svc, audit := newSubmissionService(repo, assignments)

	submission, err := svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: "a1", AnswerText: "42"})
	require.NoError(t, err)
	assert.Equal(t, "s1", submission.StudentID)
	assert.False(t, submission.Reviewed)
	assert.Contains(t, audit.actions, models.AuditActionSubmissionCreate)
}

func TestSubmitRejectsUnavailableAssignments(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"draft":     {ID: "draft", TeacherID: "t1", Status: models.StatusDraft},
		"completed": {ID: "completed", TeacherID: "t1", Status: models.StatusCompleted},
	}}
	svc, _ := newSubmissionService(&mockSubmissionRepo{}, assignments)

	for _, id := range []string{"draft", "completed", "missing"} {
		_, err := svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: id, AnswerText: "42"})
		assert.Equal(t, appErrors.ErrNotAvailable.Code, errCode(t, err), "assignment %s", id)
	}
}

func TestSubmitRequiresAnswerText(t *testing.T) {
	svc, _ := newSubmissionService(&mockSubmissionRepo{}, &mockAssignmentRepo{})

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: "a1"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	repo := &mockSubmissionRepo{}
	svc, _ := newSubmissionService(repo, assignments)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: "a1", AnswerText: "first"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: "a1", AnswerText: "second"})
	assert.Equal(t, appErrors.ErrDuplicateSubmission.Code, errCode(t, err))
	require.Len(t, repo.submissions, 1)

	// A different student may still submit.
	_, err = svc.Submit(context.Background(), "s2", SubmitRequest{AssignmentID: "a1", AnswerText: "mine"})
	assert.NoError(t, err)
}

func TestSubmitMapsUniqueViolationFromStore(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	// The fast-path check sees nothing, but the insert hits the unique
	// index, as happens when two submits race.
	repo := &mockSubmissionRepo{createErr: repository.ErrDuplicateSubmission}
	svc, _ := newSubmissionService(repo, assignments)

	_, err := svc.Submit(context.Background(), "s1", SubmitRequest{AssignmentID: "a1", AnswerText: "42"})
	assert.Equal(t, appErrors.ErrDuplicateSubmission.Code, errCode(t, err))
}

func TestMineReturnsNilWhenAbsent(t *testing.T) {
	repo := &mockSubmissionRepo{submissions: map[string]models.Submission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1", AnswerText: "42", SubmittedAt: time.Now()},
	}}
	svc, _ := newSubmissionService(repo, &mockAssignmentRepo{})

	mine, err := svc.Mine(context.Background(), "s1", "a1")
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, "sub1", mine.ID)

	none, err := svc.Mine(context.Background(), "s2", "a1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReviewMarksSubmission(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	repo := &mockSubmissionRepo{submissions: map[string]models.Submission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1"},
	}}
	svc, audit := newSubmissionService(repo, assignments)

	reviewed, err := svc.Review(context.Background(), "t1", "sub1")
	require.NoError(t, err)
	assert.True(t, reviewed.Reviewed)
	assert.True(t, repo.submissions["sub1"].Reviewed)
	assert.Contains(t, audit.actions, models.AuditActionSubmissionReviewed)
}

func TestReviewIsIdempotent(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	repo := &mockSubmissionRepo{submissions: map[string]models.Submission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1", Reviewed: true},
	}}
	svc, _ := newSubmissionService(repo, assignments)

	reviewed, err := svc.Review(context.Background(), "t1", "sub1")
	require.NoError(t, err)
	assert.True(t, reviewed.Reviewed)
	assert.Zero(t, repo.reviewCalls)
}

func TestReviewByNonOwnerForbidden(t *testing.T) {
	assignments := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", Status: models.StatusPublished},
	}}
	repo := &mockSubmissionRepo{submissions: map[string]models.Submission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1"},
	}}
	svc, _ := newSubmissionService(repo, assignments)

	_, err := svc.Review(context.Background(), "t2", "sub1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))
	assert.False(t, repo.submissions["sub1"].Reviewed)

	_, err = svc.Review(context.Background(), "t1", "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}
