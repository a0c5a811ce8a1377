package engine

import "github.com/noah-isme/rvm-assignment-api/internal/models"

// RequiresApproval decides whether an assignment must be reviewed before it
// becomes final.
func RequiresApproval(principal models.Person, profile RoleProfile) bool {
	switch profile.Type {
	case models.RoleTypePresiding, models.RoleTypeStudyConductor:
		return true
	}
	if profile.IsTalk && !profile.IsStudentPart {
		return true
	}
	return principal.NeedsApproval
}

// InitialStatus maps the gate decision to the first workflow state.
func InitialStatus(requiresApproval bool) models.AssignmentStatus {
	if requiresApproval {
		return models.AssignmentStatusPendingApproval
	}
	return models.AssignmentStatusDraft
}
