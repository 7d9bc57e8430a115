package service

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/learnify/internal/domain"
)

// DashboardService builds the admin dashboard from the stats snapshots
type DashboardService struct {
	statsRepo domain.StatsRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(statsRepo domain.StatsRepository) *DashboardService {
	return &DashboardService{statsRepo: statsRepo}
}

// GetDashboardStats returns the last twelve periods oldest-first together with
// the month-over-month change of each counter
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	snapshots, err := s.statsRepo.Latest(ctx, domain.DashboardSeriesLength)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return domain.BuildDashboard(snapshots), nil
}
