package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

func TestAggregateStats(t *testing.T) {
	roster := []models.Person{member("a", "Ana", models.SexB), member("b", "Bia", models.SexB)}
	history := []models.HistoryEntry{
		entry("ana", "Following Up", 30),
		entry("Ana", "Bible Reading", 10),
		entry("Ana", "Starting a Conversation", 20),
		entry("Carl", "Talk", 5),
	}

	stats := AggregateStats(roster, history)

	require.Len(t, stats, 3)
	assert.Equal(t, "Bia", stats[0].PersonName)
	assert.Zero(t, stats[0].TotalAssignments)
	assert.Nil(t, stats[0].LastAssignmentDate)
	assert.Equal(t, "Carl", stats[1].PersonName)
	assert.Nil(t, stats[1].AvgDaysBetweenAssignment)

	ana := stats[2]
	assert.Equal(t, "a", ana.PersonID)
	assert.Equal(t, 3, ana.TotalAssignments)
	assert.Equal(t, "Bible Reading", ana.LastAssignmentTitle)
	require.NotNil(t, ana.AvgDaysBetweenAssignment)
	assert.InDelta(t, 10.0, *ana.AvgDaysBetweenAssignment, 0.0001)
}
