package models

import "time"

// AssignmentStatus captures the lifecycle states of an assignment.
type AssignmentStatus string

const (
	StatusDraft     AssignmentStatus = "Draft"
	StatusPublished AssignmentStatus = "Published"
	StatusCompleted AssignmentStatus = "Completed"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s AssignmentStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusCompleted
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another. The machine has exactly two edges: Draft→Published
// and Published→Completed. Completed is terminal.
func CanTransition(from, to AssignmentStatus) bool {
	switch {
	case from == StatusDraft && to == StatusPublished:
		return true
	case from == StatusPublished && to == StatusCompleted:
		return true
	default:
		return false
	}
}

// Assignment represents a teacher-owned assignment record.
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	DueDate     *time.Time       `db:"due_date" json:"due_date,omitempty"`
	Status      AssignmentStatus `db:"status" json:"status"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter constrains listing queries.
type AssignmentFilter struct {
	TeacherID string
	Status    *AssignmentStatus
}
