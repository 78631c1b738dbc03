package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

func TestCreateAssignmentDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{Title: "HW1", Status: models.StatusDraft, TeacherID: "t1"}
	err := repo.Create(context.Background(), assignment)
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAssignmentByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "due_date", "status", "teacher_id", "created_at", "updated_at"}).
		AddRow("a1", "HW1", "Read chapter 3", nil, string(models.StatusDraft), "t1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, due_date, status, teacher_id, created_at, updated_at FROM assignments WHERE id = $1 LIMIT 1")).
		WithArgs("a1").
		WillReturnRows(rows)

	assignment, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, assignment.Status)
	assert.Equal(t, "t1", assignment.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAssignmentsByOwnerAndStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "due_date", "status", "teacher_id", "created_at", "updated_at"}).
		AddRow("a2", "HW2", "", nil, string(models.StatusDraft), "t1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, due_date, status, teacher_id, created_at, updated_at FROM assignments WHERE teacher_id = $1 AND status = $2 ORDER BY created_at DESC")).
		WithArgs("t1", string(models.StatusDraft)).
		WillReturnRows(rows)

	status := models.StatusDraft
	assignments, err := repo.List(context.Background(), models.AssignmentFilter{TeacherID: "t1", Status: &status})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "a2", assignments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPublishedAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "due_date", "status", "teacher_id", "created_at", "updated_at"}).
		AddRow("a3", "HW3", "", nil, string(models.StatusPublished), "t1", now, now).
		AddRow("a1", "HW1", "", nil, string(models.StatusPublished), "t2", now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, due_date, status, teacher_id, created_at, updated_at FROM assignments WHERE status = $1 ORDER BY created_at DESC")).
		WithArgs(string(models.StatusPublished)).
		WillReturnRows(rows)

	status := models.StatusPublished
	assignments, err := repo.List(context.Background(), models.AssignmentFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAssignmentStatusConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("a1", string(models.StatusDraft), string(models.StatusPublished), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStatus(context.Background(), "a1", models.StatusDraft, models.StatusPublished)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAssignmentStatusStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	// Another request already moved the row off Draft.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("a1", string(models.StatusDraft), string(models.StatusPublished), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.UpdateStatus(context.Background(), "a1", models.StatusDraft, models.StatusPublished)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "a1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
