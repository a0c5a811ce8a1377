package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

type countingHistory struct {
	entries []models.HistoryEntry
	calls   int
	err     error
}

func (h *countingHistory) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	h.calls++
	return h.entries, h.err
}

func historyEntry(name, title string, date time.Time) models.HistoryEntry {
	return models.HistoryEntry{PersonName: name, RoleTitle: title, Date: date, Category: models.RoleCategoryStudent}
}

func TestStatsWorkloadOrdersLeastUsedFirst(t *testing.T) {
	roster := repository.NewMemoryStore()
	roster.SetPersons(testRoster()[:3])
	history := &countingHistory{entries: []models.HistoryEntry{
		historyEntry("alan", "Talk", workflowNow.AddDate(0, 0, -28)),
		historyEntry("Alan", "Bible Reading", workflowNow.AddDate(0, 0, -14)),
		historyEntry("Bruno", "Talk", workflowNow.AddDate(0, 0, -7)),
		historyEntry("Visitor", "Following Up", workflowNow.AddDate(0, 0, -7)),
	}}
	svc := NewStatsService(roster, history, nil, nil)

	stats, err := svc.Workload(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, "Cleo", stats[0].PersonName)
	assert.Zero(t, stats[0].TotalAssignments)
	assert.Equal(t, "Alan", stats[3].PersonName)
	assert.Equal(t, 2, stats[3].TotalAssignments)
	require.NotNil(t, stats[3].AvgDaysBetweenAssignment)
	assert.InDelta(t, 14.0, *stats[3].AvgDaysBetweenAssignment, 0.001)
	assert.Equal(t, "Bible Reading", stats[3].LastAssignmentTitle)

	visitor, err := svc.ForPerson(context.Background(), "VISITOR")
	require.NoError(t, err)
	assert.Equal(t, 1, visitor.TotalAssignments)

	byID, err := svc.ForPerson(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "Bruno", byID.PersonName)

	_, err = svc.ForPerson(context.Background(), "nobody")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStatsWorkloadIsCached(t *testing.T) {
	history := &countingHistory{entries: []models.HistoryEntry{
		historyEntry("Alan", "Talk", workflowNow),
	}}
	metrics := NewMetricsService()
	cache := NewCacheService(newCacheRepoStub(), metrics, time.Minute, nil, true)
	svc := NewStatsService(nil, history, cache, nil)

	for i := 0; i < 3; i++ {
		stats, err := svc.Workload(context.Background())
		require.NoError(t, err)
		require.Len(t, stats, 1)
	}
	assert.Equal(t, 1, history.calls)
	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestStatsWorkloadHistoryFailure(t *testing.T) {
	svc := NewStatsService(nil, &countingHistory{err: errors.New("db down")}, nil, nil)
	_, err := svc.Workload(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
