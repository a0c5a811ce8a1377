package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// RankedCandidate is an eligible member with its fairness score.
type RankedCandidate struct {
	Person        models.Person `json:"person"`
	Score         float64       `json:"score"`
	DaysSinceLast int           `json:"daysSinceLast"`
	RepeatPenalty bool          `json:"repeatPenalty"`
	NeverAssigned bool          `json:"neverAssigned"`
	Reason        string        `json:"reason"`
}

// HistoryIndex answers "when did this member last take part" lookups by
// case-insensitive name. It is built once per generation run.
type HistoryIndex struct {
	latest  map[string]time.Time
	byTitle map[string]map[string]time.Time
}

// NewHistoryIndex indexes the given history entries.
func NewHistoryIndex(entries []models.HistoryEntry) *HistoryIndex {
	idx := &HistoryIndex{
		latest:  make(map[string]time.Time),
		byTitle: make(map[string]map[string]time.Time),
	}
	for _, entry := range entries {
		idx.Add(entry)
	}
	return idx
}

// Add records one entry.
func (h *HistoryIndex) Add(entry models.HistoryEntry) {
	name := models.NormalizeName(entry.PersonName)
	if name == "" {
		return
	}
	if last, ok := h.latest[name]; !ok || entry.Date.After(last) {
		h.latest[name] = entry.Date
	}
	titles, ok := h.byTitle[name]
	if !ok {
		titles = make(map[string]time.Time)
		h.byTitle[name] = titles
	}
	title := strings.ToLower(strings.TrimSpace(entry.RoleTitle))
	if last, ok := titles[title]; !ok || entry.Date.After(last) {
		titles[title] = entry.Date
	}
}

// LastParticipation returns the date of the member's most recent entry.
func (h *HistoryIndex) LastParticipation(name string) (time.Time, bool) {
	if h == nil {
		return time.Time{}, false
	}
	last, ok := h.latest[models.NormalizeName(name)]
	return last, ok
}

// LastInRole returns the most recent date the member held a role with the given title.
func (h *HistoryIndex) LastInRole(name, title string) (time.Time, bool) {
	if h == nil {
		return time.Time{}, false
	}
	titles, ok := h.byTitle[models.NormalizeName(name)]
	if !ok {
		return time.Time{}, false
	}
	last, ok := titles[strings.ToLower(strings.TrimSpace(title))]
	return last, ok
}

// DaysSinceLast returns whole days since the member last took part, or
// NeverParticipatedDays when there is no record.
func (h *HistoryIndex) DaysSinceLast(name string, now time.Time) int {
	last, ok := h.LastParticipation(name)
	if !ok {
		return NeverParticipatedDays
	}
	days := int(math.Floor(now.Sub(last).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// Rank orders eligible candidates by how overdue they are for a role of the
// given category. Higher score means more deserving.
func Rank(candidates []models.Person, index *HistoryIndex, profile RoleProfile, category models.RoleCategory, cfg Config) []RankedCandidate {
	now := cfg.now()
	weight := cfg.Weight(category)
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, person := range candidates {
		days := index.DaysSinceLast(person.Name, now)
		candidate := RankedCandidate{
			Person:        person,
			DaysSinceLast: days,
			NeverAssigned: days == NeverParticipatedDays,
		}
		score := float64(days) * weight
		if last, ok := index.LastInRole(person.Name, profile.Title); ok && now.Sub(last) < cfg.CooldownWindow {
			candidate.RepeatPenalty = true
			score -= cfg.CooldownPenalty
		}
		if candidate.NeverAssigned {
			score += cfg.NeverParticipatedBonus
		}
		candidate.Score = score
		candidate.Reason = rankReason(candidate)
		ranked = append(ranked, candidate)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Person.ID != ranked[j].Person.ID {
			return ranked[i].Person.ID < ranked[j].Person.ID
		}
		return ranked[i].Person.Name < ranked[j].Person.Name
	})
	return ranked
}

func rankReason(c RankedCandidate) string {
	if c.NeverAssigned {
		return "never participated"
	}
	reason := fmt.Sprintf("%d days since last participation", c.DaysSinceLast)
	if c.RepeatPenalty {
		reason += " (repeat penalty)"
	}
	return reason
}
