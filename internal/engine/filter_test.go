package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

var meetingDate = time.Date(2024, 3, 7, 19, 0, 0, 0, time.UTC)

func member(id, name string, sex models.SexCategory) models.Person {
	return models.Person{
		ID:           id,
		Name:         name,
		Sex:          sex,
		Baptized:     true,
		Serving:      true,
		Sections:     models.AllSections(),
		Availability: models.Availability{Mode: models.AvailabilityAlways},
	}
}

func talker(id, name string) models.Person {
	p := member(id, name, models.SexA)
	p.Privileges = models.Privileges{Talks: true, Preside: true, Pray: true, ConductStudy: true, ReadStudy: true}
	return p
}

func names(people []models.Person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.Name)
	}
	return out
}

func TestFilterTalkRequiresSexAAndPrivilege(t *testing.T) {
	a := talker("a", "Alan")
	b := member("b", "Beth", models.SexB)

	result := Filter([]models.Person{a, b}, ProfileFor("Talk", models.RoleTypeTreasures), meetingDate, NewUsedSet())

	assert.Equal(t, []string{"Alan"}, names(result.Eligible))
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "Beth", result.Rejected[0].Person.Name)
	assert.Equal(t, "only sex-A members may give talks", result.Rejected[0].Reason)
}

func TestFilterNeverAdmitsNonServing(t *testing.T) {
	pool := []models.Person{talker("a", "Alan"), talker("b", "Bob"), member("c", "Cleo", models.SexB)}
	pool[1].Serving = false
	pool[2].Serving = false

	roles := []RoleProfile{
		ProfileFor("Talk", models.RoleTypeTreasures),
		ProfileFor("Starting a Conversation", models.RoleTypeMinistry),
		ProfileFor("Chairman", models.RoleTypePresiding),
		HelperProfile(),
	}
	for _, profile := range roles {
		result := Filter(pool, profile, meetingDate, NewUsedSet())
		for _, p := range result.Eligible {
			assert.True(t, p.Serving, "role %s admitted %s", profile.Title, p.Name)
		}
	}
}

func TestFilterOverrideFlags(t *testing.T) {
	nq := member("a", "Ana", models.SexB)
	nq.NotQualified = true
	declined := member("b", "Bia", models.SexB)
	declined.DeclinedParticipation = true

	result := Filter([]models.Person{nq, declined}, ProfileFor("Following Up", models.RoleTypeMinistry), meetingDate, nil)

	assert.Empty(t, result.Eligible)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "marked as not qualified", result.Rejected[0].Reason)
	assert.Equal(t, "asked not to participate", result.Rejected[1].Reason)
}

func TestFilterAvailability(t *testing.T) {
	dateKey := meetingDate.Format(models.DateLayout)
	other := "2024-03-14"
	profile := ProfileFor("Starting a Conversation", models.RoleTypeMinistry)

	cases := []struct {
		name     string
		mode     models.AvailabilityMode
		dates    []string
		eligible bool
	}{
		{name: "available except listed, not listed", mode: models.AvailabilityAlways, dates: []string{other}, eligible: true},
		{name: "available except listed, listed", mode: models.AvailabilityAlways, dates: []string{dateKey}, eligible: false},
		{name: "unavailable except listed, listed", mode: models.AvailabilityNever, dates: []string{dateKey}, eligible: true},
		{name: "unavailable except listed, not listed", mode: models.AvailabilityNever, dates: []string{other}, eligible: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := member("a", "Ana", models.SexB)
			p.Availability = models.Availability{Mode: tc.mode, Dates: tc.dates}
			result := Filter([]models.Person{p}, profile, meetingDate, nil)
			assert.Equal(t, tc.eligible, len(result.Eligible) == 1)
		})
	}
}

func TestFilterIsDeterministic(t *testing.T) {
	pool := []models.Person{
		talker("c", "Carl"),
		member("b", "Beth", models.SexB),
		talker("a", "Alan"),
		member("d", "Dina", models.SexB),
	}
	pool[3].HelperOnly = true
	profile := ProfileFor("Bible Reading", models.RoleTypeTreasures)

	first := Filter(pool, profile, meetingDate, NewUsedSet())
	second := Filter(pool, profile, meetingDate, NewUsedSet())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Carl", "Alan"}, names(first.Eligible))
}

func TestFilterRolePrivileges(t *testing.T) {
	unbaptized := talker("u", "Uri")
	unbaptized.Baptized = false
	noPray := talker("n", "Ned")
	noPray.Privileges.Pray = false

	result := Filter([]models.Person{unbaptized, noPray, talker("o", "Otto")}, ProfileFor("Opening Prayer", models.RoleTypeOpeningPrayer), meetingDate, nil)

	assert.Equal(t, []string{"Otto"}, names(result.Eligible))
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "must be baptized to pray", result.Rejected[0].Reason)
	assert.Equal(t, "no prayer privilege", result.Rejected[1].Reason)
}

func TestFilterSectionAndHelperOnly(t *testing.T) {
	noMinistry := member("a", "Ana", models.SexB)
	noMinistry.Sections.Ministry = false
	helperOnly := member("b", "Bia", models.SexB)
	helperOnly.HelperOnly = true

	result := Filter([]models.Person{noMinistry, helperOnly}, ProfileFor("Making Disciples", models.RoleTypeMinistry), meetingDate, nil)
	assert.Empty(t, result.Eligible)
	assert.Equal(t, "does not participate in the ministry section", result.Rejected[0].Reason)
	assert.Equal(t, "participates only as assistant", result.Rejected[1].Reason)

	helpers := Filter([]models.Person{helperOnly}, HelperProfile(), meetingDate, nil)
	assert.Equal(t, []string{"Bia"}, names(helpers.Eligible))
}

func TestFilterUsedMatchesIDAndName(t *testing.T) {
	used := NewUsedSet()
	used.Mark(models.Person{ID: "x", Name: "Alan Smith"})

	pool := []models.Person{
		member("x", "Someone Else", models.SexB),
		member("y", "  alan SMITH ", models.SexB),
		member("z", "Zoe", models.SexB),
	}
	result := Filter(pool, ProfileFor("Starting a Conversation", models.RoleTypeMinistry), meetingDate, used)

	assert.Equal(t, []string{"Zoe"}, names(result.Eligible))
	for _, r := range result.Rejected {
		assert.Equal(t, "already assigned in this meeting", r.Reason)
	}
}
