package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

const historyColumns = `id, person_name, person_id, week_id, date, role_title, role_type, category, duration_min, source,
       source_assignment_id, created_at`

const insertHistoryQuery = `INSERT INTO history_entries (` + historyColumns + `)
VALUES (:id, :person_name, :person_id, :week_id, :date, :role_title, :role_type, :category, :duration_min, :source,
        :source_assignment_id, :created_at)`

// HistoryRepository reads and appends permanent participation history.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListHistory returns entries matching the filter, oldest first.
func (r *HistoryRepository) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + historyColumns + ` FROM history_entries`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.PersonName != "" {
		args = append(args, models.NormalizeName(filter.PersonName))
		conditions = append(conditions, fmt.Sprintf("LOWER(TRIM(person_name)) = $%d", len(args)))
	}
	if filter.WeekID != "" {
		args = append(args, filter.WeekID)
		conditions = append(conditions, fmt.Sprintf("week_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY date ASC, id ASC")

	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// InsertHistory appends imported entries in one transaction.
func (r *HistoryRepository) InsertHistory(ctx context.Context, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insertHistoryQuery, entries[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}
