package dto

import (
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// PartRequest is one program slot supplied by the caller.
type PartRequest struct {
	Title       string `json:"title" yaml:"title" validate:"required,max=200"`
	Type        string `json:"type" yaml:"type"`
	NeedsHelper bool   `json:"needsHelper" yaml:"needsHelper"`
}

// GenerateWeekRequest asks the engine to fill a week's program. When Parts
// is empty the default weekly template is used; when Roster or History are
// empty they are read from the configured stores.
type GenerateWeekRequest struct {
	WeekID    string                `json:"weekId" yaml:"weekId" validate:"required,max=64"`
	Date      string                `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Parts     []PartRequest         `json:"parts" yaml:"parts" validate:"omitempty,dive"`
	Durations map[string]int        `json:"durations" yaml:"durations" validate:"omitempty,dive,min=1,max=120"`
	Roster    []models.Person       `json:"roster,omitempty" yaml:"-"`
	History   []models.HistoryEntry `json:"history,omitempty" yaml:"-"`
	// DryRun returns proposals without persisting them.
	DryRun bool `json:"dryRun" yaml:"-"`
}

// GenerateWeekResponse carries the proposals and, unless dry-run, the persisted rows.
type GenerateWeekResponse struct {
	WeekID      string                      `json:"weekId"`
	Date        string                      `json:"date"`
	Proposals   []engine.ProposedAssignment `json:"proposals"`
	Assignments []models.Assignment         `json:"assignments,omitempty"`
	Degraded    int                         `json:"degraded"`
}

// AssignmentActionRequest submits APPROVE, REJECT or COMPLETE.
type AssignmentActionRequest struct {
	Action string `json:"action" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// ApprovalRequest is the legacy approve/reject payload. The approver fields
// are only used when the token carries no display name.
type ApprovalRequest struct {
	Action       string `json:"action" validate:"required,oneof=APPROVE REJECT approve reject"`
	ApproverID   string `json:"approverId"`
	ApproverName string `json:"approverName"`
	Reason       string `json:"reason" validate:"max=500"`
}

// PromoteRequest lists assignments to copy into history; empty means all completed.
type PromoteRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,required"`
}
