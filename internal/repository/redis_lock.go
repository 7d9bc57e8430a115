package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	rotationKeyPrefix = "stats:rotation:"
	// long enough to outlive the monthly period it guards
	defaultRotationLockTTL = 40 * 24 * time.Hour
)

// RedisPeriodLock implements domain.PeriodLock with SET NX so only one
// replica wins a given period
type RedisPeriodLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPeriodLock creates a new Redis backed period lock
func NewRedisPeriodLock(client *redis.Client, ttl time.Duration) *RedisPeriodLock {
	if ttl <= 0 {
		ttl = defaultRotationLockTTL
	}
	return &RedisPeriodLock{
		client: client,
		ttl:    ttl,
	}
}

// Acquire claims the period with OTel tracing
func (l *RedisPeriodLock) Acquire(ctx context.Context, period string) (bool, error) {
	key := rotationKeyPrefix + period

	tracer := otel.Tracer("redis")
	ctx, span := tracer.Start(ctx, "redis.SetNX",
		trace.WithAttributes(
			attribute.String("lock.key", key),
			attribute.Int64("lock.ttl_seconds", int64(l.ttl.Seconds())),
		),
	)
	defer span.End()

	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("redis setnx error: %w", err)
	}

	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	return ok, nil
}

// Release deletes the period key
func (l *RedisPeriodLock) Release(ctx context.Context, period string) error {
	key := rotationKeyPrefix + period

	tracer := otel.Tracer("redis")
	ctx, span := tracer.Start(ctx, "redis.Del",
		trace.WithAttributes(attribute.String("lock.key", key)),
	)
	defer span.End()

	if err := l.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// MemoryPeriodLock implements domain.PeriodLock for a single process
type MemoryPeriodLock struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewMemoryPeriodLock creates an in-process period lock
func NewMemoryPeriodLock() *MemoryPeriodLock {
	return &MemoryPeriodLock{claimed: make(map[string]struct{})}
}

func (l *MemoryPeriodLock) Acquire(ctx context.Context, period string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.claimed[period]; ok {
		return false, nil
	}
	l.claimed[period] = struct{}{}
	return true, nil
}

func (l *MemoryPeriodLock) Release(ctx context.Context, period string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.claimed, period)
	return nil
}
