package engine

import (
	"fmt"
	"time"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// Rejection records why a candidate was excluded from a role.
type Rejection struct {
	Person models.Person `json:"person"`
	Reason string        `json:"reason"`
}

// FilterResult partitions a candidate pool for one role.
type FilterResult struct {
	Eligible []models.Person
	Rejected []Rejection
}

// UsedSet tracks members already holding a role in the current run, by id and by name.
type UsedSet struct {
	ids   map[string]struct{}
	names map[string]struct{}
}

// NewUsedSet returns an empty set.
func NewUsedSet() *UsedSet {
	return &UsedSet{ids: make(map[string]struct{}), names: make(map[string]struct{})}
}

// Mark records the member as used.
func (u *UsedSet) Mark(p models.Person) {
	if p.ID != "" {
		u.ids[p.ID] = struct{}{}
	}
	if name := models.NormalizeName(p.Name); name != "" {
		u.names[name] = struct{}{}
	}
}

// Contains reports whether the member matches a used id or name.
func (u *UsedSet) Contains(p models.Person) bool {
	if u == nil {
		return false
	}
	if _, ok := u.ids[p.ID]; ok && p.ID != "" {
		return true
	}
	_, ok := u.names[models.NormalizeName(p.Name)]
	return ok
}

// Len returns the number of distinct ids recorded.
func (u *UsedSet) Len() int {
	if u == nil {
		return 0
	}
	return len(u.ids)
}

// Filter applies the hard eligibility rules for one role. Rules short-circuit
// on the first failure and the output preserves the pool order.
func Filter(pool []models.Person, profile RoleProfile, date time.Time, used *UsedSet) FilterResult {
	result := FilterResult{
		Eligible: make([]models.Person, 0, len(pool)),
		Rejected: make([]Rejection, 0),
	}
	dateKey := date.Format(models.DateLayout)
	for _, person := range pool {
		if reason, ok := checkCandidate(person, profile, dateKey, used); !ok {
			result.Rejected = append(result.Rejected, Rejection{Person: person, Reason: reason})
			continue
		}
		result.Eligible = append(result.Eligible, person)
	}
	return result
}

func checkCandidate(p models.Person, profile RoleProfile, dateKey string, used *UsedSet) (string, bool) {
	if used.Contains(p) {
		return "already assigned in this meeting", false
	}
	if !p.Serving {
		return "not currently serving", false
	}
	if p.NotQualified {
		return "marked as not qualified", false
	}
	if p.DeclinedParticipation {
		return "asked not to participate", false
	}
	if !p.Availability.AvailableOn(dateKey) {
		return fmt.Sprintf("unavailable on %s", dateKey), false
	}
	if reason, ok := checkRolePrivileges(p, profile); !ok {
		return reason, false
	}
	if reason, ok := checkSectionPermission(p, profile.Section); !ok {
		return reason, false
	}
	if p.HelperOnly && profile.Type != models.RoleTypeAssistant {
		return "participates only as assistant", false
	}
	return "", true
}

func checkRolePrivileges(p models.Person, profile RoleProfile) (string, bool) {
	switch profile.Type {
	case models.RoleTypeTreasures:
		if profile.IsTalk || profile.IsGems {
			if p.Sex != models.SexA {
				return "only sex-A members may give talks", false
			}
			if !p.Privileges.Talks {
				return "no talk privilege", false
			}
		}
		if profile.IsReading && p.Sex != models.SexA {
			return "only sex-A members may do the Bible reading", false
		}
	case models.RoleTypePresiding:
		if p.Sex != models.SexA {
			return "only sex-A members may preside", false
		}
		if !p.Privileges.Preside {
			return "no presiding privilege", false
		}
	case models.RoleTypeOpeningPrayer, models.RoleTypeClosingPrayer:
		if p.Sex != models.SexA {
			return "only baptized sex-A members may pray", false
		}
		if !p.Baptized {
			return "must be baptized to pray", false
		}
		if !p.Privileges.Pray {
			return "no prayer privilege", false
		}
	case models.RoleTypeStudyConductor:
		if p.Sex != models.SexA {
			return "only sex-A members may conduct the study", false
		}
		if !p.Privileges.ConductStudy {
			return "no study conductor privilege", false
		}
	case models.RoleTypeStudyReader:
		if p.Sex != models.SexA {
			return "only sex-A members may read at the study", false
		}
		if !p.Privileges.ReadStudy {
			return "no study reader privilege", false
		}
	}
	return "", true
}

func checkSectionPermission(p models.Person, section models.Section) (string, bool) {
	switch section {
	case models.SectionTreasures:
		if !p.Sections.Treasures {
			return "does not participate in the treasures section", false
		}
	case models.SectionMinistry:
		if !p.Sections.Ministry {
			return "does not participate in the ministry section", false
		}
	case models.SectionChristianLife:
		if !p.Sections.ChristianLife {
			return "does not participate in the christian life section", false
		}
	}
	return "", true
}
