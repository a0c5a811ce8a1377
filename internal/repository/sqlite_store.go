package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

// personRecord stores a roster member with its nested rules as JSON.
type personRecord struct {
	ID     string        `gorm:"primaryKey"`
	Name   string        `gorm:"index"`
	Person models.Person `gorm:"serializer:json"`
}

func (personRecord) TableName() string { return "persons" }

// SQLiteStore is the embedded single-file implementation of the assignment,
// history and roster contracts, built on gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore migrates the schema and returns the store.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&models.Assignment{}, &models.HistoryEntry{}, &personRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePersons replaces the stored roster.
func (s *SQLiteStore) SavePersons(ctx context.Context, persons []models.Person) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&personRecord{}).Error; err != nil {
			return fmt.Errorf("clear persons: %w", err)
		}
		for _, p := range persons {
			record := personRecord{ID: p.ID, Name: p.Name, Person: p}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("save person %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// ListPersons returns the roster ordered by name.
func (s *SQLiteStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	var records []personRecord
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	persons := make([]models.Person, 0, len(records))
	for _, record := range records {
		persons = append(persons, record.Person)
	}
	return persons, nil
}

// Upsert inserts or overwrites a still-unreviewed assignment.
func (s *SQLiteStore) Upsert(ctx context.Context, assignment *models.Assignment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var existing models.Assignment
		err := tx.Where("id = ?", assignment.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if assignment.CreatedAt.IsZero() {
				assignment.CreatedAt = now
			}
			assignment.UpdatedAt = now
			if err := tx.Create(assignment).Error; err != nil {
				return fmt.Errorf("insert assignment: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load assignment: %w", err)
		}
		if !existing.Status.Reviewable() || existing.Promoted() {
			return nil
		}
		assignment.CreatedAt = existing.CreatedAt
		assignment.UpdatedAt = now
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		return nil
	})
}

// GetByID returns sql.ErrNoRows when the id is unknown.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &assignment, nil
}

// ListByWeek returns the week's assignments in program order.
func (s *SQLiteStore) ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := s.db.WithContext(ctx).Where("week_id = ?", weekID).Order("position ASC, id ASC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("list assignments by week: %w", err)
	}
	return assignments, nil
}

// ListByStatus returns assignments in any of the given statuses.
func (s *SQLiteStore) ListByStatus(ctx context.Context, statuses ...models.AssignmentStatus) ([]models.Assignment, error) {
	query := s.db.WithContext(ctx).Order("meeting_date ASC, week_id ASC, position ASC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("list assignments by status: %w", err)
	}
	return assignments, nil
}

// CountByStatus aggregates assignment counts per status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[models.AssignmentStatus]int, error) {
	var rows []struct {
		Status models.AssignmentStatus
		Total  int
	}
	if err := s.db.WithContext(ctx).Model(&models.Assignment{}).Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count assignments by status: %w", err)
	}
	counts := make(map[models.AssignmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountPromoted returns how many assignments were copied into history.
func (s *SQLiteStore) CountPromoted(ctx context.Context) (int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Assignment{}).Where("promoted_to_history_id IS NOT NULL").Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count promoted assignments: %w", err)
	}
	return int(total), nil
}

// Transition applies a compare-and-swap status change.
func (s *SQLiteStore) Transition(ctx context.Context, t models.AssignmentTransition) error {
	updates := map[string]interface{}{"status": t.To, "updated_at": t.UpdatedAt}
	if t.ApproverID != nil {
		updates["approver_id"] = *t.ApproverID
	}
	if t.ApproverName != nil {
		updates["approver_name"] = *t.ApproverName
	}
	if t.ApprovedAt != nil {
		updates["approved_at"] = *t.ApprovedAt
	}
	if t.RejectionReason != nil {
		updates["rejection_reason"] = *t.RejectionReason
	}
	if t.CompletedAt != nil {
		updates["completed_at"] = *t.CompletedAt
	}
	result := s.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND promoted_to_history_id IS NULL AND status IN ?", t.ID, t.From).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("transition assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Promote stamps completed assignments and inserts their history entries in
// one transaction.
func (s *SQLiteStore) Promote(ctx context.Context, promotions []models.AssignmentPromotion) ([]string, error) {
	promoted := make([]string, 0, len(promotions))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range promotions {
			result := tx.Model(&models.Assignment{}).
				Where("id = ? AND status = ? AND promoted_to_history_id IS NULL", p.AssignmentID, models.AssignmentStatusCompleted).
				Updates(map[string]interface{}{
					"promoted_to_history_id": p.Entry.ID,
					"promoted_at":            p.PromotedAt,
					"updated_at":             p.PromotedAt,
				})
			if result.Error != nil {
				return fmt.Errorf("stamp promoted assignment: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				continue
			}
			entry := p.Entry
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("insert promoted history: %w", err)
			}
			promoted = append(promoted, p.AssignmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// ListHistory returns entries matching the filter, oldest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	query := s.db.WithContext(ctx).Order("date ASC, id ASC")
	if filter.Since != nil {
		query = query.Where("date >= ?", *filter.Since)
	}
	if filter.PersonName != "" {
		query = query.Where("LOWER(TRIM(person_name)) = ?", models.NormalizeName(filter.PersonName))
	}
	if filter.WeekID != "" {
		query = query.Where("week_id = ?", filter.WeekID)
	}
	var entries []models.HistoryEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// InsertHistory appends imported entries.
func (s *SQLiteStore) InsertHistory(ctx context.Context, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
}
