package engine

import (
	"sort"
	"strings"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// AggregateStats summarises participation per member. Members on the roster
// without history are included with zero totals; history names not on the
// roster are reported under their recorded name. The result is sorted by
// ascending total so the least used members come first.
func AggregateStats(roster []models.Person, history []models.HistoryEntry) []models.PersonStats {
	byName := make(map[string][]models.HistoryEntry)
	order := make([]string, 0)
	for _, entry := range history {
		key := models.NormalizeName(entry.PersonName)
		if key == "" {
			continue
		}
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = append(byName[key], entry)
	}

	stats := make([]models.PersonStats, 0, len(roster)+len(order))
	seen := make(map[string]struct{}, len(roster))
	for _, person := range roster {
		key := models.NormalizeName(person.Name)
		seen[key] = struct{}{}
		stats = append(stats, summarise(person.ID, person.Name, byName[key]))
	}
	for _, key := range order {
		if _, ok := seen[key]; ok {
			continue
		}
		entries := byName[key]
		id := ""
		if entries[0].PersonID != nil {
			id = *entries[0].PersonID
		}
		stats = append(stats, summarise(id, entries[0].PersonName, entries))
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].TotalAssignments != stats[j].TotalAssignments {
			return stats[i].TotalAssignments < stats[j].TotalAssignments
		}
		return strings.ToLower(stats[i].PersonName) < strings.ToLower(stats[j].PersonName)
	})
	return stats
}

func summarise(id, name string, entries []models.HistoryEntry) models.PersonStats {
	stat := models.PersonStats{PersonID: id, PersonName: name, TotalAssignments: len(entries)}
	if len(entries) == 0 {
		return stat
	}
	sorted := make([]models.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	last := sorted[len(sorted)-1]
	lastDate := last.Date
	stat.LastAssignmentDate = &lastDate
	stat.LastAssignmentWeek = last.WeekID
	stat.LastAssignmentTitle = last.RoleTitle
	stat.LastAssignmentType = last.RoleType
	stat.LastAssignmentCategory = last.Category

	if len(sorted) > 1 {
		var total float64
		for i := 1; i < len(sorted); i++ {
			total += sorted[i].Date.Sub(sorted[i-1].Date).Hours() / 24
		}
		avg := total / float64(len(sorted)-1)
		stat.AvgDaysBetweenAssignment = &avg
	}
	return stat
}
