package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
	"github.com/noah-isme/rvm-assignment-api/pkg/jobs"
)

// PromotionJobType tags auto-promotion jobs on the worker queue.
const PromotionJobType = "assignment.promote"

const approvalStatsKey = repository.StatsKeyPrefix + "approval"

// assignmentNamespace seeds the deterministic assignment ids so a re-run of
// the same week overwrites its own rows.
var assignmentNamespace = uuid.MustParse("6f1c7a52-4d1e-4b8e-9c3a-2a7d0e5b9f41")

// AssignmentStore persists assignments and performs guarded status changes.
// Missing rows and lost compare-and-swap races are reported as sql.ErrNoRows.
type AssignmentStore interface {
	Upsert(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error)
	ListByStatus(ctx context.Context, statuses ...models.AssignmentStatus) ([]models.Assignment, error)
	CountByStatus(ctx context.Context) (map[models.AssignmentStatus]int, error)
	CountPromoted(ctx context.Context) (int, error)
	Transition(ctx context.Context, t models.AssignmentTransition) error
	Promote(ctx context.Context, promotions []models.AssignmentPromotion) ([]string, error)
}

// PromotionEnqueuer schedules background promotion of completed assignments.
type PromotionEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Approver identifies who acted on an assignment.
type Approver struct {
	ID   string
	Name string
}

// CreateAssignmentsParams carries engine proposals to persist for one week.
type CreateAssignmentsParams struct {
	WeekID    string
	Date      time.Time
	Proposals []engine.ProposedAssignment
	// Durations overrides the default duration per role title.
	Durations map[string]int
}

// WorkflowService owns the assignment lifecycle from creation to promotion into history.
type WorkflowService struct {
	store   AssignmentStore
	metrics *MetricsService
	cache   *CacheService
	queue   PromotionEnqueuer
	logger  *zap.Logger
	now     func() time.Time
}

// WorkflowOption configures the service.
type WorkflowOption func(*WorkflowService)

// WithWorkflowMetrics records transitions and promotions.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithWorkflowCache caches approval counts.
func WithWorkflowCache(cache *CacheService) WorkflowOption {
	return func(s *WorkflowService) {
		s.cache = cache
	}
}

// WithAutoPromotion enqueues a promotion job whenever an assignment completes.
func WithAutoPromotion(queue PromotionEnqueuer) WorkflowOption {
	return func(s *WorkflowService) {
		s.queue = queue
	}
}

// WithWorkflowClock overrides the time source.
func WithWorkflowClock(now func() time.Time) WorkflowOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewWorkflowService constructs the service.
func NewWorkflowService(store AssignmentStore, logger *zap.Logger, opts ...WorkflowOption) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AssignmentID derives the stable id of the part at position in a week.
func AssignmentID(weekID string, position int, title string) string {
	key := fmt.Sprintf("%s|%d|%s", strings.TrimSpace(weekID), position, strings.ToLower(strings.TrimSpace(title)))
	return uuid.NewSHA1(assignmentNamespace, []byte(key)).String()
}

// Create persists proposals one row at a time. Rows already reviewed are kept
// untouched. On failure the error reports how many rows were written.
func (s *WorkflowService) Create(ctx context.Context, params CreateAssignmentsParams) ([]models.Assignment, error) {
	weekID := strings.TrimSpace(params.WeekID)
	if weekID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week id is required")
	}
	durations := make(map[string]int, len(params.Durations))
	for title, minutes := range params.Durations {
		durations[strings.ToLower(strings.TrimSpace(title))] = minutes
	}

	created := make([]models.Assignment, 0, len(params.Proposals))
	for i, proposal := range params.Proposals {
		assignment := s.fromProposal(weekID, params.Date, proposal, durations)
		start := time.Now()
		err := s.store.Upsert(ctx, &assignment)
		s.metrics.ObserveStoreCall("upsert", time.Since(start))
		if err != nil {
			s.logger.Error("assignment upsert failed",
				zap.String("week_id", weekID),
				zap.Int("persisted", i),
				zap.Int("total", len(params.Proposals)),
				zap.Error(err),
			)
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("persisted %d of %d assignments", i, len(params.Proposals)))
		}
		stored, err := s.store.GetByID(ctx, assignment.ID)
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("persisted %d of %d assignments", i+1, len(params.Proposals)))
		}
		created = append(created, *stored)
	}
	s.invalidateStats(ctx)
	return created, nil
}

func (s *WorkflowService) fromProposal(weekID string, date time.Time, p engine.ProposedAssignment, durations map[string]int) models.Assignment {
	duration := p.DefaultDuration
	if override, ok := durations[strings.ToLower(strings.TrimSpace(p.Part.Title))]; ok && override > 0 {
		duration = override
	}
	assignment := models.Assignment{
		ID:               AssignmentID(weekID, p.Position, p.Part.Title),
		WeekID:           weekID,
		RoleID:           p.RoleID,
		Position:         p.Position,
		RoleTitle:        p.Part.Title,
		RoleType:         p.Part.Type,
		Category:         p.Category,
		PrincipalID:      p.PrincipalID,
		PrincipalName:    p.PrincipalName,
		MeetingDate:      date,
		DurationMin:      duration,
		Status:           p.Status,
		RequiresApproval: p.RequiresApproval,
		Degraded:         p.Degraded,
		Score:            p.Score,
		SelectionReason:  p.Reason,
	}
	if assignment.Status == "" {
		assignment.Status = engine.InitialStatus(p.RequiresApproval)
	}
	if p.HasHelper() {
		id, name := p.SecondaryID, p.SecondaryName
		assignment.SecondaryID = &id
		assignment.SecondaryName = &name
	}
	if p.PairingReason != "" {
		reason := p.PairingReason
		assignment.PairingReason = &reason
	}
	return assignment
}

// Get returns a single assignment.
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListByWeek returns the week's assignments in program order.
func (s *WorkflowService) ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error) {
	if strings.TrimSpace(weekID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week id is required")
	}
	assignments, err := s.store.ListByWeek(ctx, weekID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListByStatus returns assignments in the given statuses.
func (s *WorkflowService) ListByStatus(ctx context.Context, statuses ...models.AssignmentStatus) ([]models.Assignment, error) {
	assignments, err := s.store.ListByStatus(ctx, statuses...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListPending returns the assignments awaiting an approver.
func (s *WorkflowService) ListPending(ctx context.Context) ([]models.Assignment, error) {
	return s.ListByStatus(ctx, models.AssignmentStatusPendingApproval)
}

// Stats returns assignment counts by status.
func (s *WorkflowService) Stats(ctx context.Context) (*models.ApprovalStats, error) {
	stats, _, err := cachedLoad(ctx, s.cache, approvalStatsKey, s.loadStats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *WorkflowService) loadStats(ctx context.Context) (models.ApprovalStats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return models.ApprovalStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	promoted, err := s.store.CountPromoted(ctx)
	if err != nil {
		return models.ApprovalStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count promotions")
	}
	stats := models.ApprovalStats{ByStatus: make(map[models.AssignmentStatus]int, len(models.AssignmentStatuses)), Promoted: promoted}
	for _, status := range models.AssignmentStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	stats.PendingCount = counts[models.AssignmentStatusPendingApproval]
	stats.ApprovedCount = counts[models.AssignmentStatusApproved]
	stats.RejectedCount = counts[models.AssignmentStatusRejected]
	return stats, nil
}

// Submit dispatches an action token to the matching transition.
func (s *WorkflowService) Submit(ctx context.Context, id, action string, approver Approver, reason string) (*models.Assignment, error) {
	parsed, ok := models.ParseAssignmentAction(action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, fmt.Sprintf("unknown action %q", action))
	}
	switch parsed {
	case models.AssignmentActionApprove:
		return s.Approve(ctx, id, approver)
	case models.AssignmentActionReject:
		return s.Reject(ctx, id, approver, reason)
	default:
		return s.Complete(ctx, id)
	}
}

// Approve moves a DRAFT or PENDING_APPROVAL assignment to APPROVED.
func (s *WorkflowService) Approve(ctx context.Context, id string, approver Approver) (*models.Assignment, error) {
	current, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Reviewable() {
		return nil, invalidTransition(current.Status, models.AssignmentStatusApproved)
	}
	if current.Degraded {
		return nil, noPrincipal(current.Status, models.AssignmentStatusApproved)
	}
	now := s.now().UTC()
	transition := models.AssignmentTransition{
		ID:         id,
		From:       []models.AssignmentStatus{current.Status},
		To:         models.AssignmentStatusApproved,
		ApprovedAt: &now,
		UpdatedAt:  now,
	}
	transition.ApproverID, transition.ApproverName = approver.pointers()
	return s.apply(ctx, current.Status, transition)
}

// Reject moves a DRAFT or PENDING_APPROVAL assignment to REJECTED. The reason is mandatory.
func (s *WorkflowService) Reject(ctx context.Context, id string, approver Approver, reason string) (*models.Assignment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	current, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Reviewable() {
		return nil, invalidTransition(current.Status, models.AssignmentStatusRejected)
	}
	now := s.now().UTC()
	transition := models.AssignmentTransition{
		ID:              id,
		From:            []models.AssignmentStatus{current.Status},
		To:              models.AssignmentStatusRejected,
		ApprovedAt:      &now,
		RejectionReason: &reason,
		UpdatedAt:       now,
	}
	transition.ApproverID, transition.ApproverName = approver.pointers()
	return s.apply(ctx, current.Status, transition)
}

// Complete marks an APPROVED assignment as held.
func (s *WorkflowService) Complete(ctx context.Context, id string) (*models.Assignment, error) {
	current, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.AssignmentStatusApproved {
		return nil, invalidTransition(current.Status, models.AssignmentStatusCompleted)
	}
	if current.Degraded {
		return nil, noPrincipal(current.Status, models.AssignmentStatusCompleted)
	}
	now := s.now().UTC()
	updated, err := s.apply(ctx, current.Status, models.AssignmentTransition{
		ID:          id,
		From:        []models.AssignmentStatus{models.AssignmentStatusApproved},
		To:          models.AssignmentStatusCompleted,
		CompletedAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{Type: PromotionJobType, Payload: id}); err != nil {
			s.logger.Warn("failed to enqueue promotion", zap.String("assignment_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

// Promote copies COMPLETED, not yet promoted assignments into history. With
// no ids every completed assignment is considered. Other records are skipped.
func (s *WorkflowService) Promote(ctx context.Context, ids []string) (*models.PromotionResult, error) {
	result := &models.PromotionResult{Promoted: []string{}, HistoryIDs: []string{}, Skipped: []models.PromotionSkip{}}

	var candidates []models.Assignment
	if len(ids) == 0 {
		completed, err := s.store.ListByStatus(ctx, models.AssignmentStatusCompleted)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed assignments")
		}
		candidates = completed
	} else {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			assignment, err := s.store.GetByID(ctx, id)
			if errors.Is(err, sql.ErrNoRows) {
				result.Skipped = append(result.Skipped, models.PromotionSkip{ID: id, Reason: "not found"})
				continue
			}
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
			}
			candidates = append(candidates, *assignment)
		}
	}

	now := s.now().UTC()
	promotions := make([]models.AssignmentPromotion, 0, len(candidates))
	for _, assignment := range candidates {
		switch {
		case assignment.Promoted():
			result.Skipped = append(result.Skipped, models.PromotionSkip{ID: assignment.ID, Reason: "already promoted"})
		case assignment.Degraded:
			result.Skipped = append(result.Skipped, models.PromotionSkip{ID: assignment.ID, Reason: "no principal"})
		case assignment.Status != models.AssignmentStatusCompleted:
			result.Skipped = append(result.Skipped, models.PromotionSkip{ID: assignment.ID, Reason: fmt.Sprintf("status is %s", assignment.Status)})
		default:
			promotions = append(promotions, models.AssignmentPromotion{
				AssignmentID: assignment.ID,
				Entry:        historyFromAssignment(assignment, now),
				PromotedAt:   now,
			})
		}
	}
	if len(promotions) == 0 {
		return result, nil
	}

	start := time.Now()
	promoted, err := s.store.Promote(ctx, promotions)
	s.metrics.ObserveStoreCall("promote", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote assignments")
	}

	done := make(map[string]struct{}, len(promoted))
	for _, id := range promoted {
		done[id] = struct{}{}
	}
	for _, p := range promotions {
		if _, ok := done[p.AssignmentID]; ok {
			result.Promoted = append(result.Promoted, p.AssignmentID)
			result.HistoryIDs = append(result.HistoryIDs, p.Entry.ID)
			continue
		}
		result.Skipped = append(result.Skipped, models.PromotionSkip{ID: p.AssignmentID, Reason: "changed concurrently"})
	}
	s.metrics.RecordPromotions(len(result.Promoted))
	s.invalidateStats(ctx)
	s.logger.Info("assignments promoted", zap.Int("promoted", len(result.Promoted)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// PromotionJobHandler processes auto-promotion jobs from the worker queue.
func (s *WorkflowService) PromotionJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		id, ok := job.Payload.(string)
		if !ok || id == "" {
			return fmt.Errorf("promotion job %s: unexpected payload %T", job.ID, job.Payload)
		}
		_, err := s.Promote(ctx, []string{id})
		return err
	}
}

func historyFromAssignment(a models.Assignment, now time.Time) models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		PersonName: a.PrincipalName,
		WeekID:     a.WeekID,
		Date:       a.MeetingDate,
		RoleTitle:  a.RoleTitle,
		RoleType:   a.RoleType,
		Category:   a.Category,
		Source:     models.HistorySourcePromotion,
		CreatedAt:  now,
	}
	if a.PrincipalID != "" {
		personID := a.PrincipalID
		entry.PersonID = &personID
	}
	if a.DurationMin > 0 {
		duration := a.DurationMin
		entry.DurationMin = &duration
	}
	assignmentID := a.ID
	entry.SourceAssignmentID = &assignmentID
	return entry
}

func (s *WorkflowService) loadMutable(ctx context.Context, id string) (*models.Assignment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Promoted() {
		return nil, appErrors.Clone(appErrors.ErrImmutable, "assignment already promoted to history")
	}
	return current, nil
}

func (s *WorkflowService) apply(ctx context.Context, from models.AssignmentStatus, transition models.AssignmentTransition) (*models.Assignment, error) {
	start := time.Now()
	err := s.store.Transition(ctx, transition)
	s.metrics.ObserveStoreCall("transition", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment was changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	s.metrics.RecordTransition(from, transition.To)
	s.invalidateStats(ctx)
	s.logger.Info("assignment transitioned",
		zap.String("assignment_id", transition.ID),
		zap.String("from", string(from)),
		zap.String("to", string(transition.To)),
	)
	return s.Get(ctx, transition.ID)
}

func (s *WorkflowService) invalidateStats(ctx context.Context) {
	s.cache.Invalidate(ctx, repository.StatsKeyPrefix+"*")
}

func invalidTransition(from, to models.AssignmentStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move assignment from %s to %s", from, to))
}

// noPrincipal refuses to move a placeholder row, which has nobody to approve or record.
func noPrincipal(from, to models.AssignmentStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move assignment from %s to %s: no eligible candidate was found", from, to))
}

func (a Approver) pointers() (*string, *string) {
	var id, name *string
	if v := strings.TrimSpace(a.ID); v != "" {
		id = &v
	}
	if v := strings.TrimSpace(a.Name); v != "" {
		name = &v
	}
	return id, name
}
