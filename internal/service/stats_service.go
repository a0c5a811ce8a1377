package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

const workloadStatsKey = repository.StatsKeyPrefix + "workload"

// StatsService reports per-member workload computed from history.
type StatsService struct {
	roster  RosterReader
	history HistoryReader
	cache   *CacheService
	logger  *zap.Logger
}

// NewStatsService constructs the service. roster may be nil, in which case
// only names found in history are reported.
func NewStatsService(roster RosterReader, history HistoryReader, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{roster: roster, history: history, cache: cache, logger: logger}
}

// Workload returns stats for every member, least used first.
func (s *StatsService) Workload(ctx context.Context) ([]models.PersonStats, error) {
	stats, hit, err := cachedLoad(ctx, s.cache, workloadStatsKey, s.compute)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("workload stats served", zap.Bool("cache_hit", hit), zap.Int("members", len(stats)))
	return stats, nil
}

// ForPerson returns the stats of one member matched by id or name.
func (s *StatsService) ForPerson(ctx context.Context, ref string) (*models.PersonStats, error) {
	ref = strings.TrimSpace(ref)
	stats, err := s.Workload(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		if (stats[i].PersonID != "" && stats[i].PersonID == ref) || models.NormalizeName(stats[i].PersonName) == models.NormalizeName(ref) {
			return &stats[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no stats for member")
}

func (s *StatsService) compute(ctx context.Context) ([]models.PersonStats, error) {
	var roster []models.Person
	if s.roster != nil {
		var err error
		if roster, err = s.roster.ListPersons(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
	}
	history, err := s.history.ListHistory(ctx, models.HistoryFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return engine.AggregateStats(roster, history), nil
}
