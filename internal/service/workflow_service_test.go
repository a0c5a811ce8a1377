package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
	"github.com/noah-isme/rvm-assignment-api/pkg/jobs"
)

var workflowNow = time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)

type failingStore struct {
	*repository.MemoryStore
	upsertsBeforeFailure int
	upserts              int
	loseRace             bool
}

func (f *failingStore) Upsert(ctx context.Context, assignment *models.Assignment) error {
	if f.upserts >= f.upsertsBeforeFailure {
		return errors.New("connection reset")
	}
	f.upserts++
	return f.MemoryStore.Upsert(ctx, assignment)
}

func (f *failingStore) Transition(ctx context.Context, t models.AssignmentTransition) error {
	if f.loseRace {
		return sql.ErrNoRows
	}
	return f.MemoryStore.Transition(ctx, t)
}

type queueStub struct {
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func newWorkflow(store AssignmentStore, opts ...WorkflowOption) *WorkflowService {
	opts = append(opts, WithWorkflowClock(func() time.Time { return workflowNow }))
	return NewWorkflowService(store, nil, opts...)
}

func seedAssignment(t *testing.T, store *repository.MemoryStore, id string, status models.AssignmentStatus) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), &models.Assignment{
		ID:            id,
		WeekID:        "2024-w10",
		RoleTitle:     "Talk",
		RoleType:      models.RoleTypeTreasures,
		Category:      models.RoleCategoryTeaching,
		PrincipalID:   "p-" + id,
		PrincipalName: "Person " + id,
		MeetingDate:   time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		DurationMin:   10,
		Status:        status,
	}))
}

func sampleProposals() []engine.ProposedAssignment {
	return []engine.ProposedAssignment{
		{
			Part:             engine.Part{Title: "Talk", Type: models.RoleTypeTreasures},
			RoleID:           "2024-w10-talk",
			Position:         0,
			Category:         models.RoleCategoryTeaching,
			PrincipalID:      "p-1",
			PrincipalName:    "Alan",
			RequiresApproval: true,
			Status:           models.AssignmentStatusPendingApproval,
			Score:            1999.5,
			Reason:           "never participated",
			DefaultDuration:  10,
		},
		{
			Part:            engine.Part{Title: "Starting a Conversation", Type: models.RoleTypeMinistry, NeedsHelper: true},
			RoleID:          "2024-w10-starting-a-conversation",
			Position:        1,
			Category:        models.RoleCategoryStudent,
			PrincipalID:     "p-2",
			PrincipalName:   "Beth",
			SecondaryID:     "p-3",
			SecondaryName:   "Cora",
			Status:          models.AssignmentStatusDraft,
			Reason:          "12 days since last participation",
			PairingReason:   "same sex category",
			DefaultDuration: 3,
		},
	}
}

func TestWorkflowCreatePersistsProposals(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newWorkflow(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAssignmentsParams{
		WeekID:    "2024-w10",
		Date:      time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Proposals: sampleProposals(),
		Durations: map[string]int{"starting a conversation": 5},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, AssignmentID("2024-w10", 0, "Talk"), created[0].ID)
	assert.Equal(t, models.AssignmentStatusPendingApproval, created[0].Status)
	assert.Equal(t, 10, created[0].DurationMin)
	assert.Equal(t, models.AssignmentStatusDraft, created[1].Status)
	assert.Equal(t, 5, created[1].DurationMin)
	require.NotNil(t, created[1].SecondaryName)
	assert.Equal(t, "Cora", *created[1].SecondaryName)
	require.NotNil(t, created[1].PairingReason)

	_, err = svc.Approve(ctx, created[0].ID, Approver{ID: "u-1", Name: "Ana"})
	require.NoError(t, err)

	again, err := svc.Create(ctx, CreateAssignmentsParams{WeekID: "2024-w10", Proposals: sampleProposals()})
	require.NoError(t, err)
	assert.Equal(t, created[0].ID, again[0].ID)
	assert.Equal(t, models.AssignmentStatusApproved, again[0].Status)
}

func TestWorkflowCreateReportsPartialProgress(t *testing.T) {
	store := &failingStore{MemoryStore: repository.NewMemoryStore(), upsertsBeforeFailure: 1}
	svc := newWorkflow(store)

	created, err := svc.Create(context.Background(), CreateAssignmentsParams{WeekID: "2024-w10", Proposals: sampleProposals()})
	require.Error(t, err)
	assert.Len(t, created, 1)
	assert.Contains(t, err.Error(), "persisted 1 of 2 assignments")
}

func TestWorkflowApproveAndRejectGuards(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusPendingApproval)
	seedAssignment(t, store, "b", models.AssignmentStatusDraft)
	svc := newWorkflow(store)
	ctx := context.Background()

	approved, err := svc.Approve(ctx, "a", Approver{ID: "u-1", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverName)
	assert.Equal(t, "Ana", *approved.ApproverName)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(workflowNow))

	_, err = svc.Approve(ctx, "a", Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Reject(ctx, "b", Approver{ID: "u-1"}, "   ")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	rejected, err := svc.Reject(ctx, "b", Approver{ID: "u-1"}, "away that week")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "away that week", *rejected.RejectionReason)

	_, err = svc.Approve(ctx, "b", Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Approve(ctx, "missing", Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestWorkflowCompleteRequiresApproval(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusDraft)
	seedAssignment(t, store, "r", models.AssignmentStatusRejected)
	queue := &queueStub{}
	svc := newWorkflow(store, WithAutoPromotion(queue))
	ctx := context.Background()

	_, err := svc.Complete(ctx, "a")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Complete(ctx, "r")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	rejected, err := svc.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRejected, rejected.Status)

	_, err = svc.Approve(ctx, "a", Approver{ID: "u-1"})
	require.NoError(t, err)
	completed, err := svc.Complete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, PromotionJobType, queue.jobs[0].Type)
	assert.Equal(t, "a", queue.jobs[0].Payload)
}

func TestWorkflowSubmitDispatchesActions(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusPendingApproval)
	svc := newWorkflow(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "a", "CANCEL", Approver{ID: "u-1"}, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAction))

	updated, err := svc.Submit(ctx, "a", "approve", Approver{ID: "u-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusApproved, updated.Status)

	updated, err = svc.Submit(ctx, "a", "COMPLETE", Approver{ID: "u-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCompleted, updated.Status)
}

func TestWorkflowLostRaceIsConflict(t *testing.T) {
	store := &failingStore{MemoryStore: repository.NewMemoryStore(), upsertsBeforeFailure: 10, loseRace: true}
	seedAssignment(t, store.MemoryStore, "a", models.AssignmentStatusPendingApproval)
	svc := newWorkflow(store)

	_, err := svc.Approve(context.Background(), "a", Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestWorkflowPromote(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "done", models.AssignmentStatusDraft)
	seedAssignment(t, store, "open", models.AssignmentStatusPendingApproval)
	svc := newWorkflow(store)
	ctx := context.Background()

	_, err := svc.Approve(ctx, "done", Approver{ID: "u-1"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "done")
	require.NoError(t, err)

	result, err := svc.Promote(ctx, []string{"done", "open", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, result.Promoted)
	require.Len(t, result.HistoryIDs, 1)
	assert.ElementsMatch(t, []models.PromotionSkip{
		{ID: "ghost", Reason: "not found"},
		{ID: "open", Reason: "status is PENDING_APPROVAL"},
	}, result.Skipped)

	history, err := store.ListHistory(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Person done", history[0].PersonName)
	assert.Equal(t, models.HistorySourcePromotion, history[0].Source)
	require.NotNil(t, history[0].SourceAssignmentID)
	assert.Equal(t, "done", *history[0].SourceAssignmentID)

	second, err := svc.Promote(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, second.Promoted)
	assert.Equal(t, []models.PromotionSkip{{ID: "done", Reason: "already promoted"}}, second.Skipped)

	history, err = store.ListHistory(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.Approve(ctx, "done", Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrImmutable))
}

func TestWorkflowPlaceholderRowsCannotAdvance(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newWorkflow(store)
	ctx := context.Background()

	placeholder := engine.ProposedAssignment{
		Part:             engine.Part{Title: "Bible Reading", Type: models.RoleTypeTreasures},
		RoleID:           "2024-w10-bible-reading",
		Category:         models.RoleCategoryStudent,
		PrincipalName:    engine.NoCandidateName,
		Reason:           engine.NoCandidateReason,
		RequiresApproval: true,
		Status:           models.AssignmentStatusPendingApproval,
		Degraded:         true,
	}
	created, err := svc.Create(ctx, CreateAssignmentsParams{WeekID: "2024-w10", Proposals: []engine.ProposedAssignment{placeholder}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	id := created[0].ID

	_, err = svc.Approve(ctx, id, Approver{ID: "u-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	_, err = svc.Submit(ctx, id, "COMPLETE", Approver{ID: "u-1"}, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	rejected, err := svc.Reject(ctx, id, Approver{ID: "u-1"}, "nobody available")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRejected, rejected.Status)

	for _, status := range []models.AssignmentStatus{models.AssignmentStatusApproved, models.AssignmentStatusCompleted} {
		row := created[0]
		row.ID = "placeholder-" + string(status)
		row.Status = status
		require.NoError(t, store.Upsert(ctx, &row))
	}

	_, err = svc.Complete(ctx, "placeholder-APPROVED")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	result, err := svc.Promote(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Promoted)
	assert.Equal(t, []models.PromotionSkip{{ID: "placeholder-COMPLETED", Reason: "no principal"}}, result.Skipped)

	history, err := store.ListHistory(ctx, models.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWorkflowPromotionJobHandler(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusDraft)
	svc := newWorkflow(store)
	ctx := context.Background()
	_, err := svc.Approve(ctx, "a", Approver{ID: "u-1"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "a")
	require.NoError(t, err)

	handler := svc.PromotionJobHandler()
	require.Error(t, handler(ctx, jobs.Job{ID: "j-0", Payload: 42}))
	require.NoError(t, handler(ctx, jobs.Job{ID: "j-1", Payload: "a"}))

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Promoted())
}

func TestWorkflowStats(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusPendingApproval)
	seedAssignment(t, store, "b", models.AssignmentStatusPendingApproval)
	seedAssignment(t, store, "c", models.AssignmentStatusDraft)
	metrics := NewMetricsService()
	svc := newWorkflow(store, WithWorkflowMetrics(metrics))
	ctx := context.Background()

	_, err := svc.Reject(ctx, "c", Approver{ID: "u-1"}, "unavailable")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.PendingCount)
	assert.Equal(t, 1, stats.RejectedCount)
	assert.Equal(t, 0, stats.ByStatus[models.AssignmentStatusCompleted])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Transitions["DRAFT->REJECTED"])

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
