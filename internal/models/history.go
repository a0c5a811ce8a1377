package models

import "time"

// HistorySource records how a history entry entered the permanent record.
type HistorySource string

const (
	HistorySourceImport    HistorySource = "IMPORT"
	HistorySourcePromotion HistorySource = "PROMOTION"
)

// HistoryEntry is one immutable past participation.
type HistoryEntry struct {
	ID                 string        `db:"id" json:"id"`
	PersonName         string        `db:"person_name" json:"personName"`
	PersonID           *string       `db:"person_id" json:"personId,omitempty"`
	WeekID             string        `db:"week_id" json:"weekId"`
	Date               time.Time     `db:"date" json:"date"`
	RoleTitle          string        `db:"role_title" json:"roleTitle"`
	RoleType           RoleType      `db:"role_type" json:"roleType"`
	Category           RoleCategory  `db:"category" json:"category"`
	DurationMin        *int          `db:"duration_min" json:"durationMin,omitempty"`
	Source             HistorySource `db:"source" json:"source"`
	SourceAssignmentID *string       `db:"source_assignment_id" json:"sourceAssignmentId,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Since      *time.Time
	PersonName string
	WeekID     string
}

// PersonStats summarises the workload of one member.
type PersonStats struct {
	PersonID                 string       `json:"personId"`
	PersonName               string       `json:"personName"`
	TotalAssignments         int          `json:"totalAssignments"`
	LastAssignmentDate       *time.Time   `json:"lastAssignmentDate,omitempty"`
	LastAssignmentWeek       string       `json:"lastAssignmentWeek,omitempty"`
	LastAssignmentTitle      string       `json:"lastAssignmentTitle,omitempty"`
	LastAssignmentType       RoleType     `json:"lastAssignmentType,omitempty"`
	LastAssignmentCategory   RoleCategory `json:"lastAssignmentCategory,omitempty"`
	AvgDaysBetweenAssignment *float64     `json:"avgDaysBetweenAssignments,omitempty"`
}
