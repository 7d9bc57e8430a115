package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLock(t *testing.T) domain.PeriodLock {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewRedisPeriodLock(client, 0)
}

func TestSnapshotScheduler_RotateOncePerPeriod(t *testing.T) {
	ctx := context.Background()
	stats := newBootstrappedStats(t)
	lock := newRedisLock(t)

	// two replicas sharing the same store and lock
	a := NewSnapshotScheduler(stats, lock, nil, "", time.UTC)
	b := NewSnapshotScheduler(stats, lock, nil, "", time.UTC)

	fire := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	var rotated int32
	var wg sync.WaitGroup
	for _, s := range []*SnapshotScheduler{a, b, a, b} {
		wg.Add(1)
		go func(s *SnapshotScheduler) {
			defer wg.Done()
			ok, err := s.Rotate(ctx, fire)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&rotated, 1)
			}
		}(s)
	}
	wg.Wait()

	assert.Equal(t, int32(1), rotated)
	assert.Equal(t, 2, stats.size())

	cur, err := stats.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, fire, cur.CreatedAt)
	assert.Zero(t, cur.Users)
	assert.Zero(t, cur.Subscription)
	assert.Zero(t, cur.Views)

	// next month rotates again
	ok, err := a.Rotate(ctx, fire.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, stats.size())
}

func TestSnapshotScheduler_RotateSealsPrevious(t *testing.T) {
	ctx := context.Background()
	stats := newBootstrappedStats(t)
	require.NoError(t, stats.SetUserCounts(ctx, 7, 3))
	s := NewSnapshotScheduler(stats, repository.NewMemoryPeriodLock(), nil, "", time.UTC)

	fire := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ok, err := s.Rotate(ctx, fire)
	require.NoError(t, err)
	require.True(t, ok)

	latest, err := stats.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Nil(t, latest[0].SealedAt)
	require.NotNil(t, latest[1].SealedAt)
	assert.Equal(t, fire, *latest[1].SealedAt)
	assert.Equal(t, int64(7), latest[1].Users)
	assert.Equal(t, int64(3), latest[1].Subscription)
}

func TestSnapshotScheduler_RotateLockError(t *testing.T) {
	stats := newBootstrappedStats(t)
	s := NewSnapshotScheduler(stats, &failingLock{err: errors.New("redis down")}, nil, "", time.UTC)

	ok, err := s.Rotate(context.Background(), time.Now())
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, stats.size())
}

func TestSnapshotScheduler_FailedRotationIsRetried(t *testing.T) {
	ctx := context.Background()
	lock := newRedisLock(t)

	stats := &flakyStatsRepo{memStatsRepo: &memStatsRepo{}, failRotate: errors.New("mongo down")}
	require.NoError(t, stats.Insert(ctx, &domain.StatsSnapshot{CreatedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}))

	fire := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	ok, err := NewSnapshotScheduler(stats, lock, nil, "", time.UTC).Rotate(ctx, fire)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, stats.size())

	// a restarted replica catches the missed month up
	restarted := NewSnapshotScheduler(stats, lock, &countingRefresher{}, "", time.UTC)
	require.NoError(t, restarted.EnsureCurrent(ctx, fire.Add(2*time.Hour)))

	assert.Equal(t, 2, stats.size())
	cur, err := stats.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-04", domain.PeriodKey(cur.CreatedAt))

	// the retry claimed the period again
	ok, err = restarted.Rotate(ctx, fire.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, stats.size())
}

func TestSnapshotScheduler_FailedBootstrapIsRetried(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)
	stats := &flakyStatsRepo{memStatsRepo: &memStatsRepo{}, failInsert: errors.New("mongo down")}
	s := NewSnapshotScheduler(stats, newRedisLock(t), nil, "", time.UTC)

	require.Error(t, s.EnsureCurrent(ctx, now))
	assert.Zero(t, stats.size())

	require.NoError(t, s.EnsureCurrent(ctx, now))
	assert.Equal(t, 1, stats.size())
}

func TestSnapshotScheduler_EnsureCurrent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)

	t.Run("bootstraps empty collection", func(t *testing.T) {
		stats := &memStatsRepo{}
		refresher := &countingRefresher{}
		s := NewSnapshotScheduler(stats, repository.NewMemoryPeriodLock(), refresher, "", time.UTC)

		require.NoError(t, s.EnsureCurrent(ctx, now))
		require.NoError(t, s.EnsureCurrent(ctx, now))

		assert.Equal(t, 1, stats.size())
		cur, err := stats.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, now, cur.CreatedAt)
		assert.Equal(t, 2, refresher.users)
		assert.Equal(t, 2, refresher.courses)
	})

	t.Run("catches up a missed rotation", func(t *testing.T) {
		stats := &memStatsRepo{}
		require.NoError(t, stats.Insert(ctx, &domain.StatsSnapshot{CreatedAt: now.AddDate(0, -2, 0), Users: 4}))
		s := NewSnapshotScheduler(stats, repository.NewMemoryPeriodLock(), &countingRefresher{}, "", time.UTC)

		require.NoError(t, s.EnsureCurrent(ctx, now))

		assert.Equal(t, 2, stats.size())
		cur, err := stats.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.PeriodKey(now), domain.PeriodKey(cur.CreatedAt))
	})

	t.Run("current period untouched", func(t *testing.T) {
		stats := &memStatsRepo{}
		require.NoError(t, stats.Insert(ctx, &domain.StatsSnapshot{CreatedAt: now.AddDate(0, 0, -10), Users: 4}))
		s := NewSnapshotScheduler(stats, repository.NewMemoryPeriodLock(), nil, "", time.UTC)

		require.NoError(t, s.EnsureCurrent(ctx, now))
		assert.Equal(t, 1, stats.size())
	})

	t.Run("period follows the configured timezone", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*60*60)
		// 2026-06-30 20:00 UTC is already July in UTC+7
		late := time.Date(2026, 6, 30, 20, 0, 0, 0, time.UTC)

		stats := &memStatsRepo{}
		require.NoError(t, stats.Insert(ctx, &domain.StatsSnapshot{CreatedAt: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)}))
		s := NewSnapshotScheduler(stats, repository.NewMemoryPeriodLock(), nil, "", loc)

		require.NoError(t, s.EnsureCurrent(ctx, late))
		assert.Equal(t, 2, stats.size())
	})
}

func TestSnapshotScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewSnapshotScheduler(&memStatsRepo{}, repository.NewMemoryPeriodLock(), nil, "not a cron", time.UTC)
	assert.Error(t, s.Start())
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	s := NewSnapshotScheduler(&memStatsRepo{}, repository.NewMemoryPeriodLock(), nil, DefaultStatsCron, time.UTC)
	require.NoError(t, s.Start())
	s.Stop()
}
