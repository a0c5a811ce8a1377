package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// MemoryStore keeps assignments, history and the roster in process memory.
// It honours the same contract as the SQL repositories.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]models.Assignment
	history     []models.HistoryEntry
	persons     []models.Person
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assignments: make(map[string]models.Assignment)}
}

// SetPersons replaces the roster.
func (s *MemoryStore) SetPersons(persons []models.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = append([]models.Person(nil), persons...)
}

// SavePersons replaces the roster.
func (s *MemoryStore) SavePersons(ctx context.Context, persons []models.Person) error {
	s.SetPersons(persons)
	return nil
}

// ListPersons returns the roster ordered by name.
func (s *MemoryStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	persons := append([]models.Person(nil), s.persons...)
	sort.SliceStable(persons, func(i, j int) bool { return persons[i].Name < persons[j].Name })
	return persons, nil
}

// Upsert inserts or overwrites a still-unreviewed assignment.
func (s *MemoryStore) Upsert(ctx context.Context, assignment *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.assignments[assignment.ID]; ok {
		if !existing.Status.Reviewable() || existing.Promoted() {
			return nil
		}
		assignment.CreatedAt = existing.CreatedAt
	} else if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	s.assignments[assignment.ID] = *assignment
	return nil
}

// GetByID returns sql.ErrNoRows when the id is unknown.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

// ListByWeek returns the week's assignments in program order.
func (s *MemoryStore) ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error) {
	return s.list(func(a models.Assignment) bool { return a.WeekID == weekID }), nil
}

// ListByStatus returns assignments in any of the given statuses.
func (s *MemoryStore) ListByStatus(ctx context.Context, statuses ...models.AssignmentStatus) ([]models.Assignment, error) {
	return s.list(func(a models.Assignment) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, status := range statuses {
			if a.Status == status {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryStore) list(match func(models.Assignment) bool) []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Assignment, 0)
	for _, a := range s.assignments {
		if match(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].MeetingDate.Equal(result[j].MeetingDate) {
			return result[i].MeetingDate.Before(result[j].MeetingDate)
		}
		if result[i].WeekID != result[j].WeekID {
			return result[i].WeekID < result[j].WeekID
		}
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// CountByStatus aggregates assignment counts per status.
func (s *MemoryStore) CountByStatus(ctx context.Context) (map[models.AssignmentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.AssignmentStatus]int)
	for _, a := range s.assignments {
		counts[a.Status]++
	}
	return counts, nil
}

// CountPromoted returns how many assignments were copied into history.
func (s *MemoryStore) CountPromoted(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, a := range s.assignments {
		if a.Promoted() {
			total++
		}
	}
	return total, nil
}

// Transition applies a compare-and-swap status change.
func (s *MemoryStore) Transition(ctx context.Context, t models.AssignmentTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[t.ID]
	if !ok || a.Promoted() || !statusIn(a.Status, t.From) {
		return sql.ErrNoRows
	}
	a.Status = t.To
	if t.ApproverID != nil {
		a.ApproverID = t.ApproverID
	}
	if t.ApproverName != nil {
		a.ApproverName = t.ApproverName
	}
	if t.ApprovedAt != nil {
		a.ApprovedAt = t.ApprovedAt
	}
	if t.RejectionReason != nil {
		a.RejectionReason = t.RejectionReason
	}
	if t.CompletedAt != nil {
		a.CompletedAt = t.CompletedAt
	}
	a.UpdatedAt = t.UpdatedAt
	s.assignments[t.ID] = a
	return nil
}

// Promote stamps completed assignments and appends their history entries
// under one lock.
func (s *MemoryStore) Promote(ctx context.Context, promotions []models.AssignmentPromotion) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	promoted := make([]string, 0, len(promotions))
	for _, p := range promotions {
		a, ok := s.assignments[p.AssignmentID]
		if !ok || a.Status != models.AssignmentStatusCompleted || a.Promoted() {
			continue
		}
		historyID := p.Entry.ID
		promotedAt := p.PromotedAt
		a.PromotedToHistoryID = &historyID
		a.PromotedAt = &promotedAt
		a.UpdatedAt = promotedAt
		s.assignments[a.ID] = a
		s.history = append(s.history, p.Entry)
		promoted = append(promoted, a.ID)
	}
	return promoted, nil
}

// ListHistory returns entries matching the filter, oldest first.
func (s *MemoryStore) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := models.NormalizeName(filter.PersonName)
	result := make([]models.HistoryEntry, 0, len(s.history))
	for _, entry := range s.history {
		if filter.Since != nil && entry.Date.Before(*filter.Since) {
			continue
		}
		if name != "" && models.NormalizeName(entry.PersonName) != name {
			continue
		}
		if filter.WeekID != "" && entry.WeekID != filter.WeekID {
			continue
		}
		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// InsertHistory appends imported entries.
func (s *MemoryStore) InsertHistory(ctx context.Context, entries []models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		s.history = append(s.history, entries[i])
	}
	return nil
}

func statusIn(status models.AssignmentStatus, allowed []models.AssignmentStatus) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}
