package models

import "time"

// Submission represents a student's answer to a published assignment.
// At most one submission exists per (assignment, student) pair; the
// submissions table carries a unique index on that pair.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AnswerText   string    `db:"answer_text" json:"answer_text"`
	Reviewed     bool      `db:"reviewed" json:"reviewed"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// SubmissionDetail joins a submission with the submitting student's
// public identity. Credential data is never carried here.
type SubmissionDetail struct {
	Submission
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
