package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

// RosterReader supplies the current roster.
type RosterReader interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
}

// HistoryReader supplies past participations.
type HistoryReader interface {
	ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error)
}

// GenerationService turns a week's program into persisted assignment proposals.
type GenerationService struct {
	orchestrator *engine.Orchestrator
	workflow     *WorkflowService
	roster       RosterReader
	history      HistoryReader
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
}

// GenerationOption configures the service.
type GenerationOption func(*GenerationService)

// WithGenerationMetrics records proposal counts and generation latency.
func WithGenerationMetrics(metrics *MetricsService) GenerationOption {
	return func(s *GenerationService) {
		s.metrics = metrics
	}
}

// NewGenerationService constructs the service.
func NewGenerationService(orchestrator *engine.Orchestrator, workflow *WorkflowService, roster RosterReader, history HistoryReader, validate *validator.Validate, logger *zap.Logger, opts ...GenerationOption) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if orchestrator == nil {
		orchestrator = engine.NewOrchestrator(engine.DefaultConfig(), logger)
	}
	svc := &GenerationService{
		orchestrator: orchestrator,
		workflow:     workflow,
		roster:       roster,
		history:      history,
		validator:    validate,
		logger:       logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Generate runs the engine for one week and, unless dry-run, persists the result.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateWeekRequest) (*dto.GenerateWeekResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	parts, err := partsFromRequest(req.Parts)
	if err != nil {
		return nil, err
	}

	roster := req.Roster
	if len(roster) == 0 {
		if s.roster == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "roster is required")
		}
		if roster, err = s.roster.ListPersons(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
	}
	history := req.History
	if len(history) == 0 && s.history != nil {
		if history, err = s.history.ListHistory(ctx, models.HistoryFilter{}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
		}
	}

	weekID := strings.TrimSpace(req.WeekID)
	program := engine.Program{WeekID: weekID, Date: date, Parts: parts}
	if s.workflow != nil {
		existing, err := s.workflow.ListByWeek(ctx, weekID)
		if err != nil {
			return nil, err
		}
		program.Kept, program.Reserved = reviewedSlots(weekID, parts, existing)
	}
	start := time.Now()
	proposals := s.orchestrator.Generate(program, roster, history)
	s.recordGeneration(proposals, time.Since(start))

	resp := &dto.GenerateWeekResponse{WeekID: weekID, Date: req.Date, Proposals: proposals}
	for _, p := range proposals {
		if p.Degraded {
			resp.Degraded++
		}
	}
	s.logger.Info("week generated",
		zap.String("week_id", weekID),
		zap.Int("parts", len(parts)),
		zap.Int("roster", len(roster)),
		zap.Int("degraded", resp.Degraded),
		zap.Bool("dry_run", req.DryRun),
	)
	if req.DryRun || s.workflow == nil {
		return resp, nil
	}

	assignments, err := s.workflow.Create(ctx, CreateAssignmentsParams{
		WeekID:    weekID,
		Date:      date,
		Proposals: proposals,
		Durations: req.Durations,
	})
	resp.Assignments = assignments
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// FilterTest explains which members pass the eligibility rules for one role.
func (s *GenerationService) FilterTest(ctx context.Context, req dto.FilterTestRequest) (*dto.FilterTestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter-test payload")
	}
	roleType, err := parseRoleType(req.PartType)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	used := engine.NewUsedSet()
	for _, ref := range req.AlreadyAssigned {
		used.Mark(models.Person{ID: ref, Name: ref})
	}
	profile := engine.ProfileFor(req.PartTitle, roleType)
	result := engine.Filter(req.Roster, profile, date, used)

	resp := &dto.FilterTestResponse{
		Profile:       profile,
		EligibleCount: len(result.Eligible),
		Eligible:      make([]dto.CandidateRef, 0, len(result.Eligible)),
		RejectedCount: len(result.Rejected),
		Rejected:      make([]dto.CandidateRef, 0, len(result.Rejected)),
	}
	for _, p := range result.Eligible {
		resp.Eligible = append(resp.Eligible, dto.CandidateRef{ID: p.ID, Name: p.Name})
	}
	for _, r := range result.Rejected {
		resp.Rejected = append(resp.Rejected, dto.CandidateRef{ID: r.Person.ID, Name: r.Person.Name, Reason: r.Reason})
	}
	return resp, nil
}

// RankTest ranks the supplied members for a role without filtering them.
func (s *GenerationService) RankTest(ctx context.Context, req dto.RankTestRequest) (*dto.RankTestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rank-test payload")
	}
	roleType, err := parseRoleType(req.PartType)
	if err != nil {
		return nil, err
	}

	cfg := s.orchestrator.Config()
	profile := engine.ProfileFor(req.PartTitle, roleType)
	ranked := engine.Rank(req.Roster, engine.NewHistoryIndex(req.History), profile, profile.Category, cfg)

	resp := &dto.RankTestResponse{Category: profile.Category, Ranked: make([]dto.RankedCandidateView, 0, len(ranked))}
	weight := cfg.Weight(profile.Category)
	for _, r := range ranked {
		view := dto.RankedCandidateView{
			ID:             r.Person.ID,
			Name:           r.Person.Name,
			Score:          r.Score,
			DaysSinceLast:  r.DaysSinceLast,
			CategoryWeight: weight,
			Reason:         r.Reason,
		}
		if r.RepeatPenalty {
			view.CooldownPenalty = cfg.CooldownPenalty
		}
		if r.NeverAssigned {
			view.NeverParticipatedBonus = cfg.NeverParticipatedBonus
		}
		resp.Ranked = append(resp.Ranked, view)
	}
	return resp, nil
}

// reviewedSlots collects the week's rows that a re-run must not overwrite.
// Their positions are kept and their members stay booked, except for
// placeholder rows which book nobody.
func reviewedSlots(weekID string, parts []engine.Part, existing []models.Assignment) (map[int]engine.KeptSlot, []models.Person) {
	positions := make(map[string]int, len(parts))
	for i, part := range parts {
		positions[AssignmentID(weekID, i, part.Title)] = i
	}

	kept := make(map[int]engine.KeptSlot)
	var reserved []models.Person
	for i := range existing {
		row := existing[i]
		if row.Status.Reviewable() && !row.Promoted() {
			continue
		}
		slot := engine.KeptSlot{
			PrincipalID:      row.PrincipalID,
			PrincipalName:    row.PrincipalName,
			Status:           row.Status,
			RequiresApproval: row.RequiresApproval,
			Score:            row.Score,
			Reason:           row.SelectionReason,
			Degraded:         row.Degraded,
		}
		if row.SecondaryID != nil {
			slot.SecondaryID = *row.SecondaryID
		}
		if row.SecondaryName != nil {
			slot.SecondaryName = *row.SecondaryName
		}
		if position, ok := positions[row.ID]; ok {
			kept[position] = slot
		}
		if row.Degraded {
			continue
		}
		reserved = append(reserved, models.Person{ID: slot.PrincipalID, Name: slot.PrincipalName})
		if slot.SecondaryName != "" {
			reserved = append(reserved, models.Person{ID: slot.SecondaryID, Name: slot.SecondaryName})
		}
	}
	return kept, reserved
}

func (s *GenerationService) recordGeneration(proposals []engine.ProposedAssignment, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	categories := make([]models.RoleCategory, 0, len(proposals))
	var degraded []models.RoleType
	for _, p := range proposals {
		if p.Kept {
			continue
		}
		categories = append(categories, p.Category)
		if p.Degraded {
			degraded = append(degraded, p.Part.Type)
		}
	}
	s.metrics.RecordGeneration(categories, degraded, duration)
}

func partsFromRequest(requested []dto.PartRequest) ([]engine.Part, error) {
	if len(requested) == 0 {
		return engine.DefaultParts(), nil
	}
	parts := make([]engine.Part, 0, len(requested))
	for _, p := range requested {
		roleType, err := parseRoleType(p.Type)
		if err != nil {
			return nil, err
		}
		parts = append(parts, engine.Part{Title: strings.TrimSpace(p.Title), Type: roleType, NeedsHelper: p.NeedsHelper})
	}
	return parts, nil
}

// parseRoleType accepts canonical tags and legacy aliases. An empty tag means MINISTRY.
func parseRoleType(raw string) (models.RoleType, error) {
	if strings.TrimSpace(raw) == "" {
		return models.RoleTypeMinistry, nil
	}
	roleType, ok := models.ParseRoleType(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role type %q", raw))
	}
	return roleType, nil
}
