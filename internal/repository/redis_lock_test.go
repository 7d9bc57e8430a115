package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisPeriodLock_AcquireOncePerPeriod(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisPeriodLock(client, time.Hour)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire for the same period must fail")

	ok, err = lock.Acquire(ctx, "2025-04")
	require.NoError(t, err)
	assert.True(t, ok, "a new period is independent")

	assert.True(t, mr.Exists("stats:rotation:2025-03"))
	assert.Equal(t, time.Hour, mr.TTL("stats:rotation:2025-03"))
}

func TestRedisPeriodLock_ConcurrentReplicas(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each goroutine plays a separate replica with its own lock value
			lock := NewRedisPeriodLock(client, 0)
			ok, err := lock.Acquire(ctx, "2025-05")
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRedisPeriodLock_Release(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisPeriodLock(client, time.Hour)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2025-08")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "2025-08"))
	assert.False(t, mr.Exists("stats:rotation:2025-08"))

	ok, err = lock.Acquire(ctx, "2025-08")
	require.NoError(t, err)
	assert.True(t, ok, "a released period can be claimed again")
}

func TestRedisPeriodLock_DefaultTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisPeriodLock(client, 0)

	_, err := lock.Acquire(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, defaultRotationLockTTL, mr.TTL("stats:rotation:2025-06"))
}

func TestRedisPeriodLock_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	lock := NewRedisPeriodLock(client, time.Minute)
	ok, err := lock.Acquire(context.Background(), "2025-07")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryPeriodLock(t *testing.T) {
	lock := NewMemoryPeriodLock()
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, "2025-03"))
	ok, err = lock.Acquire(ctx, "2025-03")
	require.NoError(t, err)
	assert.True(t, ok)
}
