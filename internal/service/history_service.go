package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

// HistoryStore reads and appends the permanent participation record.
type HistoryStore interface {
	HistoryReader
	InsertHistory(ctx context.Context, entries []models.HistoryEntry) error
}

// HistoryService imports and lists past participations.
type HistoryService struct {
	store     HistoryStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(store HistoryStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HistoryService{store: store, cache: cache, validator: validate, logger: logger}
}

// Prepare validates an import payload and converts it without storing it.
func (s *HistoryService) Prepare(req dto.ImportHistoryRequest) ([]models.HistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history payload")
	}
	entries := make([]models.HistoryEntry, 0, len(req.Entries))
	for _, item := range req.Entries {
		entry, err := historyFromRequest(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Import validates and appends entries with source IMPORT.
func (s *HistoryService) Import(ctx context.Context, req dto.ImportHistoryRequest) ([]models.HistoryEntry, error) {
	entries, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertHistory(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import history")
	}
	s.cache.Invalidate(ctx, repository.StatsKeyPrefix+"*")
	s.logger.Info("history imported", zap.Int("entries", len(entries)))
	return entries, nil
}

// List returns history entries matching the query, oldest first.
func (s *HistoryService) List(ctx context.Context, query dto.HistoryQuery) ([]models.HistoryEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history query")
	}
	filter := models.HistoryFilter{PersonName: strings.TrimSpace(query.Person), WeekID: strings.TrimSpace(query.WeekID)}
	if query.Since != "" {
		since, err := time.Parse(models.DateLayout, query.Since)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "since must be YYYY-MM-DD")
		}
		filter.Since = &since
	}
	entries, err := s.store.ListHistory(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, nil
}

func historyFromRequest(item dto.HistoryEntryRequest) (models.HistoryEntry, error) {
	date, err := time.Parse(models.DateLayout, item.Date)
	if err != nil {
		return models.HistoryEntry{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	entry := models.HistoryEntry{
		PersonName: strings.TrimSpace(item.PersonName),
		WeekID:     strings.TrimSpace(item.WeekID),
		Date:       date,
		RoleTitle:  strings.TrimSpace(item.RoleTitle),
		Source:     models.HistorySourceImport,
	}
	if strings.TrimSpace(item.RoleType) != "" {
		roleType, err := parseRoleType(item.RoleType)
		if err != nil {
			return models.HistoryEntry{}, err
		}
		entry.RoleType = roleType
	}
	entry.Category = engine.ProfileFor(entry.RoleTitle, entry.RoleType).Category
	if id := strings.TrimSpace(item.PersonID); id != "" {
		entry.PersonID = &id
	}
	if item.DurationMin > 0 {
		duration := item.DurationMin
		entry.DurationMin = &duration
	}
	return entry, nil
}
