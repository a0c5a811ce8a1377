package engine

import (
	"regexp"
	"strings"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// HelperRoleTitle is the title used when ranking assistants.
const HelperRoleTitle = "Assistant"

// titleRule is one row of the ordered keyword table. The first row whose
// keyword occurs in the lowercased title decides the category.
type titleRule struct {
	keywords []string
	category models.RoleCategory
	kind     titleKind
	duration int
}

type titleKind int

const (
	kindOther titleKind = iota
	kindTalk
	kindGems
	kindReading
	kindStudentTalk
	kindAssistant
)

// Order matters: "student talk" must win over "talk".
var titleRules = []titleRule{
	{keywords: []string{"student talk", "discurso do estudante", "discurso de estudante"}, category: models.RoleCategoryStudent, kind: kindStudentTalk, duration: 5},
	{keywords: []string{"spiritual gems", "gems", "joias espirituais", "joias"}, category: models.RoleCategoryTeaching, kind: kindGems, duration: 10},
	{keywords: []string{"local needs", "congregation needs", "necessidades locais", "necessidades da congregação"}, category: models.RoleCategoryTeaching, duration: 10},
	{keywords: []string{"talk", "discurso"}, category: models.RoleCategoryTeaching, kind: kindTalk, duration: 10},
	{keywords: []string{"bible reading", "leitura da bíblia"}, category: models.RoleCategoryStudent, kind: kindReading, duration: 4},
	{keywords: []string{"reading", "leitura"}, category: models.RoleCategoryStudent, kind: kindReading, duration: 4},
	{keywords: []string{"starting a conversation", "starting conversations", "iniciando conversas"}, category: models.RoleCategoryStudent, duration: 3},
	{keywords: []string{"following up", "cultivando o interesse"}, category: models.RoleCategoryStudent, duration: 4},
	{keywords: []string{"making disciples", "fazendo discípulos"}, category: models.RoleCategoryStudent, duration: 5},
	{keywords: []string{"explaining your beliefs", "explicando suas crenças"}, category: models.RoleCategoryStudent, duration: 5},
	{keywords: []string{"assistant", "helper", "ajudante"}, category: models.RoleCategoryHelper, kind: kindAssistant},
}

// RoleProfile is everything the engine derives from a role title and type,
// computed once per role and shared by filter, ranker and approval gate.
type RoleProfile struct {
	Title           string              `json:"title"`
	Type            models.RoleType     `json:"type"`
	Category        models.RoleCategory `json:"category"`
	Section         models.Section      `json:"section,omitempty"`
	IsTalk          bool                `json:"isTalk"`
	IsGems          bool                `json:"isGems"`
	IsReading       bool                `json:"isReading"`
	IsStudentPart   bool                `json:"isStudentPart"`
	DefaultDuration int                 `json:"defaultDuration"`
}

// ProfileFor classifies a role.
func ProfileFor(title string, roleType models.RoleType) RoleProfile {
	lower := strings.ToLower(title)
	profile := RoleProfile{
		Title:    title,
		Type:     roleType,
		Category: models.RoleCategoryStudent,
		Section:  roleType.Section(),
	}
	matched := false
	for _, rule := range titleRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		if !matched {
			profile.Category = rule.category
			profile.DefaultDuration = rule.duration
			matched = true
		}
		switch rule.kind {
		case kindStudentTalk:
			profile.IsStudentPart = true
			profile.IsTalk = true
		case kindTalk:
			profile.IsTalk = true
		case kindGems:
			profile.IsGems = true
		case kindReading:
			profile.IsReading = true
		}
	}
	if strings.Contains(lower, "student") || strings.Contains(lower, "estudante") {
		profile.IsStudentPart = true
	}
	if roleType == models.RoleTypeAssistant {
		profile.Category = models.RoleCategoryHelper
	}
	return profile
}

// CategoryFor derives the ranking category of a title, defaulting to STUDENT.
func CategoryFor(title string) models.RoleCategory {
	lower := strings.ToLower(title)
	for _, rule := range titleRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	return models.RoleCategoryStudent
}

// HelperProfile is the profile used to rank assistants.
func HelperProfile() RoleProfile {
	return ProfileFor(HelperRoleTitle, models.RoleTypeAssistant)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// RoleID builds the stable identifier of a role within a week.
func RoleID(weekID, title string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
	return weekID + "-" + slug
}
