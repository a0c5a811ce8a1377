package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

func rosterMember(id, name string, sex models.SexCategory) models.Person {
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

func testRoster() []models.Person {
	alan := rosterMember("a", "Alan", models.SexA)
	alan.Privileges = models.Privileges{Talks: true}
	bruno := rosterMember("b", "Bruno", models.SexA)
	bruno.Privileges = models.Privileges{Talks: true}
	return []models.Person{
		alan,
		bruno,
		rosterMember("c", "Cleo", models.SexB),
		rosterMember("d", "Dora", models.SexB),
		rosterMember("e", "Eva", models.SexB),
		rosterMember("f", "Fay", models.SexB),
		rosterMember("g", "Gia", models.SexB),
	}
}

func newGenerationFixture() (*GenerationService, *repository.MemoryStore, *MetricsService) {
	store := repository.NewMemoryStore()
	store.SetPersons(testRoster())
	metrics := NewMetricsService()
	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return workflowNow }
	workflow := newWorkflow(store, WithWorkflowMetrics(metrics))
	svc := NewGenerationService(engine.NewOrchestrator(cfg, nil), workflow, store, store, nil, nil, WithGenerationMetrics(metrics))
	return svc, store, metrics
}

func TestGenerationUsesDefaultTemplateAndPersists(t *testing.T) {
	svc, store, metrics := newGenerationFixture()
	ctx := context.Background()

	resp, err := svc.Generate(ctx, dto.GenerateWeekRequest{WeekID: "2024-w10", Date: "2024-03-07"})
	require.NoError(t, err)
	require.Len(t, resp.Proposals, 4)
	require.Len(t, resp.Assignments, 4)
	assert.Zero(t, resp.Degraded)

	assert.Equal(t, "Bible Reading", resp.Proposals[0].Part.Title)
	assert.Equal(t, "Alan", resp.Proposals[0].PrincipalName)
	for _, p := range resp.Proposals[1:] {
		assert.True(t, p.HasHelper(), p.Part.Title)
	}
	assert.Equal(t, 4, resp.Assignments[0].DurationMin)

	week, err := store.ListByWeek(ctx, "2024-w10")
	require.NoError(t, err)
	assert.Len(t, week, 4)
	assert.Equal(t, uint64(4), metrics.Snapshot().ProposalsGenerated)
}

func TestGenerationDryRunAndDegraded(t *testing.T) {
	svc, store, metrics := newGenerationFixture()
	ctx := context.Background()

	resp, err := svc.Generate(ctx, dto.GenerateWeekRequest{
		WeekID: "2024-w11",
		Date:   "2024-03-14",
		Parts: []dto.PartRequest{
			{Title: "Talk", Type: "TREASURES"},
			{Title: "Opening Prayer", Type: "oracao_inicial"},
		},
		DryRun: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Proposals, 2)
	assert.Equal(t, models.AssignmentStatusPendingApproval, resp.Proposals[0].Status)
	assert.True(t, resp.Proposals[1].Degraded)
	assert.Equal(t, 1, resp.Degraded)
	assert.Empty(t, resp.Assignments)

	week, err := store.ListByWeek(ctx, "2024-w11")
	require.NoError(t, err)
	assert.Empty(t, week)
	assert.Equal(t, uint64(1), metrics.Snapshot().DegradedProposals)
}

func TestGenerationRerunKeepsReviewedRowsAndTheirMembers(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SetPersons([]models.Person{rosterMember("ann", "Ann", models.SexB), rosterMember("bob", "Bob", models.SexB)})
	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return workflowNow }
	workflow := newWorkflow(store)
	svc := NewGenerationService(engine.NewOrchestrator(cfg, nil), workflow, store, store, nil, nil)
	ctx := context.Background()

	req := dto.GenerateWeekRequest{
		WeekID: "2024-w11",
		Date:   "2024-03-14",
		Parts: []dto.PartRequest{
			{Title: "Starting a Conversation", Type: "MINISTRY"},
			{Title: "Following Up", Type: "MINISTRY"},
		},
	}
	first, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.Assignments, 2)

	booked := first.Assignments[1]
	_, err = workflow.Approve(ctx, booked.ID, Approver{ID: "u-1"})
	require.NoError(t, err)
	other := first.Assignments[0].PrincipalName
	require.NotEqual(t, booked.PrincipalName, other)

	req.History = []models.HistoryEntry{{PersonName: other, RoleTitle: "Following Up", Date: workflowNow.AddDate(0, 0, -2)}}
	second, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.Proposals, 2)

	assert.Equal(t, other, second.Proposals[0].PrincipalName)
	assert.False(t, second.Proposals[0].Kept)
	assert.True(t, second.Proposals[1].Kept)
	assert.Equal(t, booked.PrincipalName, second.Proposals[1].PrincipalName)
	assert.Equal(t, models.AssignmentStatusApproved, second.Proposals[1].Status)

	week, err := store.ListByWeek(ctx, "2024-w11")
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.NotEqual(t, week[0].PrincipalName, week[1].PrincipalName)
	assert.Equal(t, booked.PrincipalName, week[1].PrincipalName)
	assert.Equal(t, models.AssignmentStatusApproved, week[1].Status)
}

func TestGenerationRerunKeepsRejectedPosition(t *testing.T) {
	svc, store, _ := newGenerationFixture()
	ctx := context.Background()
	req := dto.GenerateWeekRequest{WeekID: "2024-w12", Date: "2024-03-21"}

	first, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	rejected := first.Assignments[0]
	_, err = svc.workflow.Reject(ctx, rejected.ID, Approver{ID: "u-1"}, "away that week")
	require.NoError(t, err)

	second, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Proposals[0].Kept)
	assert.Equal(t, models.AssignmentStatusRejected, second.Proposals[0].Status)
	for _, p := range second.Proposals[1:] {
		assert.NotEqual(t, rejected.PrincipalName, p.PrincipalName)
		assert.NotEqual(t, rejected.PrincipalName, p.SecondaryName)
	}

	stored, err := store.GetByID(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRejected, stored.Status)
	assert.Equal(t, rejected.PrincipalName, stored.PrincipalName)
}

func TestGenerationValidation(t *testing.T) {
	svc, _, _ := newGenerationFixture()
	ctx := context.Background()

	cases := map[string]dto.GenerateWeekRequest{
		"missing week": {Date: "2024-03-07"},
		"bad date":     {WeekID: "w", Date: "07/03/2024"},
		"unknown type": {WeekID: "w", Date: "2024-03-07", Parts: []dto.PartRequest{{Title: "Talk", Type: "sermon"}}},
		"bad duration": {WeekID: "w", Date: "2024-03-07", Durations: map[string]int{"Talk": 0}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(ctx, req)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "got %v", err)
		})
	}
}

func TestGenerationFilterTest(t *testing.T) {
	svc, _, _ := newGenerationFixture()

	resp, err := svc.FilterTest(context.Background(), dto.FilterTestRequest{
		Roster:          testRoster(),
		PartType:        "TREASURES",
		PartTitle:       "Talk",
		Date:            "2024-03-07",
		AlreadyAssigned: []string{"alan"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Profile.IsTalk)
	assert.Equal(t, 1, resp.EligibleCount)
	assert.Equal(t, "Bruno", resp.Eligible[0].Name)
	require.Equal(t, 6, resp.RejectedCount)
	assert.Equal(t, "already assigned in this meeting", resp.Rejected[0].Reason)
	assert.Equal(t, "only sex-A members may give talks", resp.Rejected[1].Reason)
}

func TestGenerationRankTest(t *testing.T) {
	svc, _, _ := newGenerationFixture()

	resp, err := svc.RankTest(context.Background(), dto.RankTestRequest{
		Roster: testRoster()[:2],
		History: []models.HistoryEntry{
			{PersonName: "ALAN", RoleTitle: "Talk", Date: workflowNow.AddDate(0, 0, -14)},
		},
		PartTitle: "Talk",
		PartType:  "TREASURES",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCategoryTeaching, resp.Category)
	require.Len(t, resp.Ranked, 2)
	assert.Equal(t, "Bruno", resp.Ranked[0].Name)
	assert.Equal(t, 1000.0, resp.Ranked[0].NeverParticipatedBonus)
	assert.Equal(t, 14, resp.Ranked[1].DaysSinceLast)
	assert.Equal(t, 500.0, resp.Ranked[1].CooldownPenalty)
	assert.Equal(t, "14 days since last participation (repeat penalty)", resp.Ranked[1].Reason)
}
