package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/metric"
)

// DefaultStatsCron fires at midnight on the first day of every month
const DefaultStatsCron = "0 0 1 * *"

// StatsRefresher triggers a recompute of the snapshot counters
type StatsRefresher interface {
	NotifyUsers()
	NotifyCourses()
}

// SnapshotScheduler opens a new stats snapshot once per period. The period
// lock makes sure only one replica rotates for a given month.
type SnapshotScheduler struct {
	statsRepo domain.StatsRepository
	lock      domain.PeriodLock
	refresher StatsRefresher
	spec      string
	loc       *time.Location
	cron      *cron.Cron
	rotations metric.Int64Counter
	now       func() time.Time
}

// NewSnapshotScheduler creates a new SnapshotScheduler instance
func NewSnapshotScheduler(
	statsRepo domain.StatsRepository,
	lock domain.PeriodLock,
	refresher StatsRefresher,
	spec string,
	loc *time.Location,
) *SnapshotScheduler {
	if spec == "" {
		spec = DefaultStatsCron
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SnapshotScheduler{
		statsRepo: statsRepo,
		lock:      lock,
		refresher: refresher,
		spec:      spec,
		loc:       loc,
		cron:      cron.New(cron.WithLocation(loc)),
		rotations: newRotationCounter(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the rotation job and starts the cron runner
func (s *SnapshotScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Rotate(ctx, s.now()); err != nil {
			log.Printf("[Scheduler] ERROR: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid stats cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Printf("[Scheduler] Stats rotation scheduled (%s, %s)", s.spec, s.loc)
	return nil
}

// Stop halts the cron runner and waits for a running rotation to finish
func (s *SnapshotScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[Scheduler] Stopped")
}

// Rotate seals the current snapshot and opens a zeroed one for the period of
// now. It returns false when another caller already rotated this period.
func (s *SnapshotScheduler) Rotate(ctx context.Context, now time.Time) (bool, error) {
	period := domain.PeriodKey(now.In(s.loc))

	acquired, err := s.lock.Acquire(ctx, period)
	if err != nil {
		return false, fmt.Errorf("acquire rotation lock %s: %w", period, err)
	}
	if !acquired {
		log.Printf("[Scheduler] Period %s already rotated, skipping", period)
		return false, nil
	}

	snap, err := s.statsRepo.Rotate(ctx, now)
	if err != nil {
		s.release(period)
		return false, fmt.Errorf("rotate stats for %s: %w", period, err)
	}

	inc(ctx, s.rotations)
	log.Printf("[Scheduler] Opened stats snapshot %s for period %s", snap.ID, period)
	return true, nil
}

// EnsureCurrent makes sure a snapshot exists for the period of now. It inserts
// the first snapshot on an empty collection, catches up a missed rotation, and
// then asks the aggregator for a fresh recompute of both counters.
func (s *SnapshotScheduler) EnsureCurrent(ctx context.Context, now time.Time) error {
	period := domain.PeriodKey(now.In(s.loc))

	current, err := s.statsRepo.Current(ctx)
	switch {
	case errors.Is(err, domain.ErrStatsNotBootstrapped):
		bootstrapKey := "bootstrap-" + period
		acquired, err := s.lock.Acquire(ctx, bootstrapKey)
		if err != nil {
			return fmt.Errorf("acquire bootstrap lock: %w", err)
		}
		if acquired {
			snap := &domain.StatsSnapshot{CreatedAt: now, UpdatedAt: now}
			if err := s.statsRepo.Insert(ctx, snap); err != nil {
				s.release(bootstrapKey)
				return fmt.Errorf("bootstrap stats: %w", err)
			}
			log.Printf("[Scheduler] Bootstrapped stats with snapshot %s", snap.ID)
		}
	case err != nil:
		return fmt.Errorf("load current stats: %w", err)
	case domain.PeriodKey(current.CreatedAt.In(s.loc)) != period:
		log.Printf("[Scheduler] Current snapshot belongs to %s, catching up to %s",
			domain.PeriodKey(current.CreatedAt.In(s.loc)), period)
		if _, err := s.Rotate(ctx, now); err != nil {
			return err
		}
	}

	if s.refresher != nil {
		s.refresher.NotifyUsers()
		s.refresher.NotifyCourses()
	}
	return nil
}

// release hands a claimed period back after a failed write so the next
// cron fire or startup can retry it
func (s *SnapshotScheduler) release(period string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lock.Release(ctx, period); err != nil {
		log.Printf("[Scheduler] ERROR: failed to release lock for %s: %v", period, err)
	}
}
