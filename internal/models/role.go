package models

import "strings"

// RoleType tags the kind of meeting part being filled.
type RoleType string

const (
	RoleTypePresiding      RoleType = "PRESIDING"
	RoleTypeOpeningPrayer  RoleType = "OPENING_PRAYER"
	RoleTypeClosingPrayer  RoleType = "CLOSING_PRAYER"
	RoleTypeTreasures      RoleType = "TREASURES"
	RoleTypeMinistry       RoleType = "MINISTRY"
	RoleTypeChristianLife  RoleType = "CHRISTIAN_LIFE"
	RoleTypeStudyConductor RoleType = "STUDY_CONDUCTOR"
	RoleTypeStudyReader    RoleType = "STUDY_READER"
	RoleTypeAssistant      RoleType = "ASSISTANT"
)

var roleTypeAliases = map[string]RoleType{
	"presiding":       RoleTypePresiding,
	"chairman":        RoleTypePresiding,
	"presidente":      RoleTypePresiding,
	"opening_prayer":  RoleTypeOpeningPrayer,
	"oracao_inicial":  RoleTypeOpeningPrayer,
	"closing_prayer":  RoleTypeClosingPrayer,
	"oracao_final":    RoleTypeClosingPrayer,
	"treasures":       RoleTypeTreasures,
	"tesouros":        RoleTypeTreasures,
	"ministry":        RoleTypeMinistry,
	"ministerio":      RoleTypeMinistry,
	"christian_life":  RoleTypeChristianLife,
	"vida_crista":     RoleTypeChristianLife,
	"study_conductor": RoleTypeStudyConductor,
	"dirigente":       RoleTypeStudyConductor,
	"study_reader":    RoleTypeStudyReader,
	"leitor":          RoleTypeStudyReader,
	"assistant":       RoleTypeAssistant,
	"helper":          RoleTypeAssistant,
	"ajudante":        RoleTypeAssistant,
}

// ParseRoleType resolves a role type tag, accepting the legacy lowercase aliases.
func ParseRoleType(raw string) (RoleType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	rt, ok := roleTypeAliases[key]
	return rt, ok
}

// Valid reports whether the role type is one of the known tags.
func (r RoleType) Valid() bool {
	_, ok := roleTypeAliases[strings.ToLower(string(r))]
	return ok
}

// Section groups role types into meeting sections for permission checks.
type Section string

const (
	SectionNone          Section = ""
	SectionTreasures     Section = "TREASURES"
	SectionMinistry      Section = "MINISTRY"
	SectionChristianLife Section = "CHRISTIAN_LIFE"
)

// Section returns the meeting section the role type belongs to.
func (r RoleType) Section() Section {
	switch r {
	case RoleTypeTreasures:
		return SectionTreasures
	case RoleTypeMinistry:
		return SectionMinistry
	case RoleTypeChristianLife:
		return SectionChristianLife
	default:
		return SectionNone
	}
}

// RoleCategory weights a role in fairness ranking.
type RoleCategory string

const (
	RoleCategoryTeaching RoleCategory = "TEACHING"
	RoleCategoryStudent  RoleCategory = "STUDENT"
	RoleCategoryHelper   RoleCategory = "HELPER"
)
