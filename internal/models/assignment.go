package models

import (
	"strings"
	"time"
)

// AssignmentStatus captures the approval workflow state of a generated assignment.
type AssignmentStatus string

const (
	AssignmentStatusDraft           AssignmentStatus = "DRAFT"
	AssignmentStatusPendingApproval AssignmentStatus = "PENDING_APPROVAL"
	AssignmentStatusApproved        AssignmentStatus = "APPROVED"
	AssignmentStatusRejected        AssignmentStatus = "REJECTED"
	AssignmentStatusCompleted       AssignmentStatus = "COMPLETED"
)

// AssignmentStatuses lists every workflow state in lifecycle order.
var AssignmentStatuses = []AssignmentStatus{
	AssignmentStatusDraft,
	AssignmentStatusPendingApproval,
	AssignmentStatusApproved,
	AssignmentStatusRejected,
	AssignmentStatusCompleted,
}

// ParseAssignmentStatus resolves a status token case-insensitively.
func ParseAssignmentStatus(raw string) (AssignmentStatus, bool) {
	candidate := AssignmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range AssignmentStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Reviewable reports whether an approver may still approve or reject.
func (s AssignmentStatus) Reviewable() bool {
	return s == AssignmentStatusDraft || s == AssignmentStatusPendingApproval
}

// AssignmentAction is a workflow command submitted by an approver.
type AssignmentAction string

const (
	AssignmentActionApprove  AssignmentAction = "APPROVE"
	AssignmentActionReject   AssignmentAction = "REJECT"
	AssignmentActionComplete AssignmentAction = "COMPLETE"
)

// ParseAssignmentAction resolves an action token.
func ParseAssignmentAction(raw string) (AssignmentAction, bool) {
	switch AssignmentAction(strings.ToUpper(strings.TrimSpace(raw))) {
	case AssignmentActionApprove:
		return AssignmentActionApprove, true
	case AssignmentActionReject:
		return AssignmentActionReject, true
	case AssignmentActionComplete:
		return AssignmentActionComplete, true
	}
	return "", false
}

// Assignment is the persisted workflow record of one generated role assignment.
type Assignment struct {
	ID                  string           `db:"id" json:"id"`
	WeekID              string           `db:"week_id" json:"weekId"`
	RoleID              string           `db:"role_id" json:"roleId"`
	Position            int              `db:"position" json:"position"`
	RoleTitle           string           `db:"role_title" json:"roleTitle"`
	RoleType            RoleType         `db:"role_type" json:"roleType"`
	Category            RoleCategory     `db:"category" json:"category"`
	PrincipalID         string           `db:"principal_id" json:"principalId"`
	PrincipalName       string           `db:"principal_name" json:"principalName"`
	SecondaryID         *string          `db:"secondary_id" json:"secondaryId,omitempty"`
	SecondaryName       *string          `db:"secondary_name" json:"secondaryName,omitempty"`
	MeetingDate         time.Time        `db:"meeting_date" json:"meetingDate"`
	DurationMin         int              `db:"duration_min" json:"durationMin"`
	Room                *string          `db:"room" json:"room,omitempty"`
	Status              AssignmentStatus `db:"status" json:"status"`
	RequiresApproval    bool             `db:"requires_approval" json:"requiresApproval"`
	Degraded            bool             `db:"degraded" json:"degraded"`
	Score               float64          `db:"score" json:"score"`
	SelectionReason     string           `db:"selection_reason" json:"selectionReason"`
	PairingReason       *string          `db:"pairing_reason" json:"pairingReason,omitempty"`
	ApproverID          *string          `db:"approver_id" json:"approverId,omitempty"`
	ApproverName        *string          `db:"approver_name" json:"approverName,omitempty"`
	ApprovedAt          *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
	RejectionReason     *string          `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CompletedAt         *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
	PromotedToHistoryID *string          `db:"promoted_to_history_id" json:"promotedToHistoryId,omitempty"`
	PromotedAt          *time.Time       `db:"promoted_at" json:"promotedAt,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updatedAt"`
}

// Promoted reports whether the record was already copied into history.
func (a *Assignment) Promoted() bool {
	return a != nil && a.PromotedToHistoryID != nil && *a.PromotedToHistoryID != ""
}

// AssignmentTransition describes a compare-and-swap status update.
type AssignmentTransition struct {
	ID              string
	From            []AssignmentStatus
	To              AssignmentStatus
	ApproverID      *string
	ApproverName    *string
	ApprovedAt      *time.Time
	RejectionReason *string
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// AssignmentPromotion pairs a completed assignment with the history entry that records it.
type AssignmentPromotion struct {
	AssignmentID string
	Entry        HistoryEntry
	PromotedAt   time.Time
}

// ApprovalStats aggregates assignment counts by workflow status.
type ApprovalStats struct {
	Total         int                      `json:"total"`
	ByStatus      map[AssignmentStatus]int `json:"byStatus"`
	PendingCount  int                      `json:"pendingCount"`
	ApprovedCount int                      `json:"approvedCount"`
	RejectedCount int                      `json:"rejectedCount"`
	Promoted      int                      `json:"promoted"`
}

// PromotionSkip explains why an assignment was left out of a promotion batch.
type PromotionSkip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PromotionResult reports the outcome of one promotion batch.
type PromotionResult struct {
	Promoted   []string        `json:"promoted"`
	HistoryIDs []string        `json:"historyIds"`
	Skipped    []PromotionSkip `json:"skipped"`
}
