package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
)

const assignmentColumns = `id, week_id, role_id, position, role_title, role_type, category, principal_id, principal_name,
       secondary_id, secondary_name, meeting_date, duration_min, room, status, requires_approval, degraded, score,
       selection_reason, pairing_reason, approver_id, approver_name, approved_at, rejection_reason, completed_at,
       promoted_to_history_id, promoted_at, created_at, updated_at`

// AssignmentRepository persists generated assignments in PostgreSQL.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Upsert inserts the assignment or overwrites a previous proposal with the
// same id while that proposal has not been reviewed yet.
func (r *AssignmentRepository) Upsert(ctx context.Context, assignment *models.Assignment) error {
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (` + assignmentColumns + `)
VALUES (:id, :week_id, :role_id, :position, :role_title, :role_type, :category, :principal_id, :principal_name,
        :secondary_id, :secondary_name, :meeting_date, :duration_min, :room, :status, :requires_approval, :degraded, :score,
        :selection_reason, :pairing_reason, :approver_id, :approver_name, :approved_at, :rejection_reason, :completed_at,
        :promoted_to_history_id, :promoted_at, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
    role_title = EXCLUDED.role_title, role_type = EXCLUDED.role_type, category = EXCLUDED.category,
    principal_id = EXCLUDED.principal_id, principal_name = EXCLUDED.principal_name,
    secondary_id = EXCLUDED.secondary_id, secondary_name = EXCLUDED.secondary_name,
    meeting_date = EXCLUDED.meeting_date, duration_min = EXCLUDED.duration_min, room = EXCLUDED.room,
    status = EXCLUDED.status, requires_approval = EXCLUDED.requires_approval, degraded = EXCLUDED.degraded,
    score = EXCLUDED.score, selection_reason = EXCLUDED.selection_reason, pairing_reason = EXCLUDED.pairing_reason,
    updated_at = EXCLUDED.updated_at
WHERE assignments.status IN ('DRAFT', 'PENDING_APPROVAL') AND assignments.promoted_to_history_id IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// GetByID fetches an assignment by identifier.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByWeek returns the assignments of a week in program order.
func (r *AssignmentRepository) ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE week_id = $1 ORDER BY position ASC, id ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, weekID); err != nil {
		return nil, fmt.Errorf("list assignments by week: %w", err)
	}
	return assignments, nil
}

// ListByStatus returns assignments in any of the given statuses, oldest meeting first.
func (r *AssignmentRepository) ListByStatus(ctx context.Context, statuses ...models.AssignmentStatus) ([]models.Assignment, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + assignmentColumns + ` FROM assignments`)
	args := make([]interface{}, 0, len(statuses))
	if len(statuses) > 0 {
		for _, status := range statuses {
			args = append(args, status)
		}
		builder.WriteString(fmt.Sprintf(" WHERE status IN (%s)", placeholders(len(statuses))))
	}
	builder.WriteString(" ORDER BY meeting_date ASC, week_id ASC, position ASC")

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list assignments by status: %w", err)
	}
	return assignments, nil
}

type statusCount struct {
	Status models.AssignmentStatus `db:"status"`
	Total  int                     `db:"total"`
}

// CountByStatus aggregates assignment counts per status.
func (r *AssignmentRepository) CountByStatus(ctx context.Context) (map[models.AssignmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM assignments GROUP BY status`
	var rows []statusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count assignments by status: %w", err)
	}
	counts := make(map[models.AssignmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountPromoted returns how many assignments were copied into history.
func (r *AssignmentRepository) CountPromoted(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE promoted_to_history_id IS NOT NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count promoted assignments: %w", err)
	}
	return total, nil
}

// Transition moves an assignment to a new status only when it is still in
// one of the expected statuses and not promoted. It returns sql.ErrNoRows
// when the guard does not hold.
func (r *AssignmentRepository) Transition(ctx context.Context, t models.AssignmentTransition) error {
	if len(t.From) == 0 {
		return fmt.Errorf("transition assignment %s: no expected status", t.ID)
	}
	args := []interface{}{t.To, t.ApproverID, t.ApproverName, t.ApprovedAt, t.RejectionReason, t.CompletedAt, t.UpdatedAt, t.ID}
	for _, status := range t.From {
		args = append(args, status)
	}
	inList := make([]string, len(t.From))
	for i := range t.From {
		inList[i] = fmt.Sprintf("$%d", 9+i)
	}
	query := fmt.Sprintf(`UPDATE assignments SET status = $1,
    approver_id = COALESCE($2, approver_id), approver_name = COALESCE($3, approver_name),
    approved_at = COALESCE($4, approved_at), rejection_reason = COALESCE($5, rejection_reason),
    completed_at = COALESCE($6, completed_at), updated_at = $7
WHERE id = $8 AND promoted_to_history_id IS NULL AND status IN (%s)`, strings.Join(inList, ","))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignment transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Promote stamps each completed assignment with its history entry and
// inserts the entry, all in one transaction. Assignments that are no longer
// completed or already promoted are left untouched and omitted from the
// returned ids.
func (r *AssignmentRepository) Promote(ctx context.Context, promotions []models.AssignmentPromotion) ([]string, error) {
	if len(promotions) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promotion tx: %w", err)
	}
	const stamp = `UPDATE assignments SET promoted_to_history_id = $1, promoted_at = $2, updated_at = $2
WHERE id = $3 AND status = 'COMPLETED' AND promoted_to_history_id IS NULL`

	promoted := make([]string, 0, len(promotions))
	for _, p := range promotions {
		result, err := tx.ExecContext(ctx, stamp, p.Entry.ID, p.PromotedAt, p.AssignmentID)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("stamp promoted assignment: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("check promotion rows: %w", err)
		}
		if rows == 0 {
			continue
		}
		if _, err := tx.NamedExecContext(ctx, insertHistoryQuery, p.Entry); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert promoted history: %w", err)
		}
		promoted = append(promoted, p.AssignmentID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit promotion tx: %w", err)
	}
	return promoted, nil
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}
