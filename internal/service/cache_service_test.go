package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

type cacheRepoStub struct {
	items   map[string][]byte
	getErr  error
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{items: make(map[string][]byte)}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			c.deleted = append(c.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsMiss(t *testing.T) {
	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, nilCache.Set(context.Background(), "k", 1, 0))

	disabled := NewCacheService(newCacheRepoStub(), nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
}

func TestCachedLoadStoresAndServes(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	value, hit, err := cachedLoad(context.Background(), cache, "rvm:stats:test", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)

	value, hit, err = cachedLoad(context.Background(), cache, "rvm:stats:test", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)
	assert.Equal(t, 1, calls)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCachedLoadFallsBackOnCacheError(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("redis down")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	value, hit, err := cachedLoad(context.Background(), cache, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, value)
}

func TestWorkflowInvalidatesApprovalStats(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAssignment(t, store, "a", models.AssignmentStatusPendingApproval)
	repo := newCacheRepoStub()
	svc := newWorkflow(store, WithWorkflowCache(NewCacheService(repo, nil, time.Minute, nil, true)))
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Contains(t, repo.items, approvalStatsKey)

	_, err = svc.Approve(ctx, "a", Approver{ID: "u-1"})
	require.NoError(t, err)
	assert.NotContains(t, repo.items, approvalStatsKey)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingCount)
	assert.Equal(t, 1, stats.ApprovedCount)
}
