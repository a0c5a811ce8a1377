package models

import "strings"

// SexCategory is only consulted by role eligibility and helper pairing rules.
type SexCategory string

const (
	SexA SexCategory = "A"
	SexB SexCategory = "B"
)

// AgeGroup classifies members for reporting.
type AgeGroup string

const (
	AgeGroupAdult AgeGroup = "ADULT"
	AgeGroupYouth AgeGroup = "YOUTH"
	AgeGroupChild AgeGroup = "CHILD"
)

// AvailabilityMode selects how Availability.Dates is interpreted.
type AvailabilityMode string

const (
	// AvailabilityAlways means available on every date except the listed ones.
	AvailabilityAlways AvailabilityMode = "ALWAYS"
	// AvailabilityNever means unavailable on every date except the listed ones.
	AvailabilityNever AvailabilityMode = "NEVER"
)

// DateLayout is the calendar date format used for availability and meeting dates.
const DateLayout = "2006-01-02"

// Privileges lists the granted role privileges of a member.
type Privileges struct {
	Talks        bool `json:"talks" yaml:"talks"`
	Preside      bool `json:"preside" yaml:"preside"`
	Pray         bool `json:"pray" yaml:"pray"`
	ConductStudy bool `json:"conductStudy" yaml:"conductStudy"`
	ReadStudy    bool `json:"readStudy" yaml:"readStudy"`
}

// SectionPermissions restricts participation per meeting section.
type SectionPermissions struct {
	Treasures     bool `json:"treasures" yaml:"treasures"`
	Ministry      bool `json:"ministry" yaml:"ministry"`
	ChristianLife bool `json:"christianLife" yaml:"christianLife"`
}

// AllSections grants every section, the default for new members.
func AllSections() SectionPermissions {
	return SectionPermissions{Treasures: true, Ministry: true, ChristianLife: true}
}

// Availability describes on which meeting dates a member can take part.
type Availability struct {
	Mode  AvailabilityMode `json:"mode" yaml:"mode"`
	Dates []string         `json:"dates,omitempty" yaml:"dates,omitempty"`
}

// AvailableOn reports whether the member can take part on the given date (YYYY-MM-DD).
func (a Availability) AvailableOn(date string) bool {
	listed := false
	for _, d := range a.Dates {
		if strings.TrimSpace(d) == date {
			listed = true
			break
		}
	}
	if a.Mode == AvailabilityNever {
		return listed
	}
	return !listed
}

// Person is a roster member as supplied by roster management.
type Person struct {
	ID                    string             `json:"id" yaml:"id"`
	Name                  string             `json:"name" yaml:"name"`
	Sex                   SexCategory        `json:"sex" yaml:"sex"`
	Baptized              bool               `json:"baptized" yaml:"baptized"`
	Serving               bool               `json:"serving" yaml:"serving"`
	AgeGroup              AgeGroup           `json:"ageGroup,omitempty" yaml:"ageGroup"`
	ParentIDs             []string           `json:"parentIds,omitempty" yaml:"parentIds"`
	Privileges            Privileges         `json:"privileges" yaml:"privileges"`
	Sections              SectionPermissions `json:"sections" yaml:"sections"`
	Availability          Availability       `json:"availability" yaml:"availability"`
	HelperOnly            bool               `json:"helperOnly" yaml:"helperOnly"`
	NotQualified          bool               `json:"notQualified" yaml:"notQualified"`
	DeclinedParticipation bool               `json:"declinedParticipation" yaml:"declinedParticipation"`
	NeedsApproval         bool               `json:"needsApproval" yaml:"needsApproval"`
}

// HasParent reports whether id is one of the member's guardians.
func (p Person) HasParent(id string) bool {
	for _, parent := range p.ParentIDs {
		if parent == id {
			return true
		}
	}
	return false
}

// NormalizeName folds a display name for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
