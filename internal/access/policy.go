// Package access holds the role-based authorization table shared by every
// route and service. All operation-to-role decisions live in one place so
// the policy can be reviewed as a whole.
package access

import "github.com/noah-isme/assignment-portal-api/internal/models"

// Operation identifies a guarded portal operation.
type Operation string

const (
	OpAssignmentCreate      Operation = "assignment:create"
	OpAssignmentList        Operation = "assignment:list"
	OpAssignmentUpdate      Operation = "assignment:update"
	OpAssignmentDelete      Operation = "assignment:delete"
	OpAssignmentTransition  Operation = "assignment:transition"
	OpAssignmentSubmissions Operation = "assignment:submissions"
	OpSubmissionCreate      Operation = "submission:create"
	OpSubmissionMine        Operation = "submission:mine"
	OpSubmissionReview      Operation = "submission:review"
)

// policy is the full operation-to-role table. Ownership checks (a teacher
// may only touch their own assignments) are enforced by the services; this
// table only answers whether a role may invoke an operation at all.
var policy = map[Operation][]models.UserRole{
	OpAssignmentCreate:      {models.RoleTeacher},
	OpAssignmentList:        {models.RoleTeacher, models.RoleStudent},
	OpAssignmentUpdate:      {models.RoleTeacher},
	OpAssignmentDelete:      {models.RoleTeacher},
	OpAssignmentTransition:  {models.RoleTeacher},
	OpAssignmentSubmissions: {models.RoleTeacher},
	OpSubmissionCreate:      {models.RoleStudent},
	OpSubmissionMine:        {models.RoleStudent},
	OpSubmissionReview:      {models.RoleTeacher},
}

// Allowed reports whether the role may invoke the operation.
// Unknown operations are denied.
func Allowed(role models.UserRole, op Operation) bool {
	for _, allowed := range policy[op] {
		if role == allowed {
			return true
		}
	}
	return false
}

// RolesFor returns the roles permitted to invoke the operation.
func RolesFor(op Operation) []models.UserRole {
	roles := policy[op]
	out := make([]models.UserRole, len(roles))
	copy(out, roles)
	return out
}
