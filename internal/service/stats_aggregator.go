package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mansoorceksport/learnify/internal/domain"
	"golang.org/x/sync/errgroup"
)

// StatsAggregator keeps the counters of the current stats snapshot in step
// with the user and course collections.
//
// Each entity kind has its own recompute loop fed by a signal channel of
// capacity one. Events arriving while a recompute is running collapse into a
// single pending signal, so the last recompute always starts after the last
// event and two recomputes of the same kind never overlap.
type StatsAggregator struct {
	userRepo   domain.UserRepository
	courseRepo domain.CourseRepository
	statsRepo  domain.StatsRepository

	userSignal   chan struct{}
	courseSignal chan struct{}

	userMu   sync.Mutex
	courseMu sync.Mutex
}

// NewStatsAggregator creates a new StatsAggregator instance
func NewStatsAggregator(
	userRepo domain.UserRepository,
	courseRepo domain.CourseRepository,
	statsRepo domain.StatsRepository,
) *StatsAggregator {
	return &StatsAggregator{
		userRepo:     userRepo,
		courseRepo:   courseRepo,
		statsRepo:    statsRepo,
		userSignal:   make(chan struct{}, 1),
		courseSignal: make(chan struct{}, 1),
	}
}

// Handle routes a change event to the matching recompute loop. It never blocks.
func (a *StatsAggregator) Handle(event domain.ChangeEvent) {
	switch event.Kind {
	case domain.EntityUser:
		a.NotifyUsers()
	case domain.EntityCourse:
		a.NotifyCourses()
	default:
		log.Printf("[Stats] Ignoring event of unknown kind %q", event.Kind)
	}
}

// NotifyUsers schedules a recompute of the user counters
func (a *StatsAggregator) NotifyUsers() {
	signal(a.userSignal)
}

// NotifyCourses schedules a recompute of the views counter
func (a *StatsAggregator) NotifyCourses() {
	signal(a.courseSignal)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run drives both recompute loops until ctx is cancelled
func (a *StatsAggregator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.loop(ctx, a.userSignal, a.RecomputeUsers)
	}()
	go func() {
		defer wg.Done()
		a.loop(ctx, a.courseSignal, a.RecomputeCourses)
	}()
	log.Println("[Stats] Aggregator started")
	wg.Wait()
	log.Println("[Stats] Aggregator stopped")
}

func (a *StatsAggregator) loop(ctx context.Context, ch <-chan struct{}, recompute func(context.Context) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := recompute(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Stats] ERROR: %v", err)
			}
		}
	}
}

// RecomputeUsers counts all users and active subscriptions and writes both
// onto the current snapshot
func (a *StatsAggregator) RecomputeUsers(ctx context.Context) error {
	a.userMu.Lock()
	defer a.userMu.Unlock()

	var users, active int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.userRepo.CountAll(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		users = n
		return nil
	})
	g.Go(func() error {
		n, err := a.userRepo.CountActiveSubscriptions(gctx)
		if err != nil {
			return fmt.Errorf("count active subscriptions: %w", err)
		}
		active = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("recompute user stats: %w", err)
	}

	if err := a.statsRepo.SetUserCounts(ctx, users, active); err != nil {
		return fmt.Errorf("recompute user stats: %w", err)
	}
	return nil
}

// RecomputeCourses sums the views of every course and writes the total onto
// the current snapshot
func (a *StatsAggregator) RecomputeCourses(ctx context.Context) error {
	a.courseMu.Lock()
	defer a.courseMu.Unlock()

	views, err := a.courseRepo.SumViews(ctx)
	if err != nil {
		return fmt.Errorf("recompute course stats: sum views: %w", err)
	}
	if err := a.statsRepo.SetViews(ctx, views); err != nil {
		return fmt.Errorf("recompute course stats: %w", err)
	}
	return nil
}
