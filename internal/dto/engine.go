package dto

import (
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// FilterTestRequest runs the eligibility filter for a single role.
type FilterTestRequest struct {
	Roster          []models.Person `json:"roster" validate:"required,min=1"`
	PartType        string          `json:"partType" validate:"required"`
	PartTitle       string          `json:"partTitle" validate:"required"`
	Date            string          `json:"date" validate:"required,datetime=2006-01-02"`
	AlreadyAssigned []string        `json:"alreadyAssigned"`
}

// CandidateRef identifies a member in diagnostic output.
type CandidateRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// FilterTestResponse lists who passed and who was rejected, with reasons.
type FilterTestResponse struct {
	Profile       engine.RoleProfile `json:"profile"`
	EligibleCount int                `json:"eligibleCount"`
	Eligible      []CandidateRef     `json:"eligible"`
	RejectedCount int                `json:"rejectedCount"`
	Rejected      []CandidateRef     `json:"rejected"`
}

// RankTestRequest ranks a candidate list against supplied history.
type RankTestRequest struct {
	Roster    []models.Person       `json:"roster" validate:"required,min=1"`
	History   []models.HistoryEntry `json:"history"`
	PartTitle string                `json:"partTitle" validate:"required"`
	PartType  string                `json:"partType"`
}

// RankedCandidateView is one ranked row in diagnostic output.
type RankedCandidateView struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Score                  float64 `json:"score"`
	DaysSinceLast          int     `json:"daysSinceLast"`
	CategoryWeight         float64 `json:"categoryWeight"`
	CooldownPenalty        float64 `json:"cooldownPenalty"`
	NeverParticipatedBonus float64 `json:"neverParticipatedBonus"`
	Reason                 string  `json:"reason"`
}

// RankTestResponse carries the derived category and the ranking.
type RankTestResponse struct {
	Category models.RoleCategory   `json:"category"`
	Ranked   []RankedCandidateView `json:"ranked"`
}
