package domain

import (
	"context"
	"time"
)

// DashboardSeriesLength is the number of monthly points the admin dashboard renders
const DashboardSeriesLength = 12

// StatsSnapshot holds the platform counters for one period.
// The newest snapshot is the current one; older ones are sealed history.
type StatsSnapshot struct {
	ID           string     `bson:"_id,omitempty" json:"id,omitempty"`
	Users        int64      `bson:"users" json:"users"`
	Subscription int64      `bson:"subscription" json:"subscription"`
	Views        int64      `bson:"views" json:"views"`
	CreatedAt    time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updatedAt"`
	SealedAt     *time.Time `bson:"sealed_at,omitempty" json:"sealedAt,omitempty"`
}

// StatsRepository defines operations on the stats snapshot series
type StatsRepository interface {
	// Latest returns up to n snapshots, newest first
	Latest(ctx context.Context, n int) ([]*StatsSnapshot, error)
	// Current returns the newest snapshot or ErrStatsNotBootstrapped
	Current(ctx context.Context) (*StatsSnapshot, error)
	Insert(ctx context.Context, snapshot *StatsSnapshot) error

	// SetViews and SetUserCounts write only their own fields on the current snapshot
	SetViews(ctx context.Context, views int64) error
	SetUserCounts(ctx context.Context, users, subscriptions int64) error

	// Rotate seals the current snapshot and inserts a zeroed one created at now
	Rotate(ctx context.Context, now time.Time) (*StatsSnapshot, error)
}

// PeriodLock grants a named period to exactly one caller
type PeriodLock interface {
	// Acquire returns true only for the first caller of a given period
	Acquire(ctx context.Context, period string) (bool, error)
	// Release gives the period back so a later caller can retry it
	Release(ctx context.Context, period string) error
}

// DashboardStats is the admin dashboard payload
type DashboardStats struct {
	Stats                  []StatsSnapshot `json:"stats"`
	UsersCount             int64           `json:"usersCount"`
	SubscriptionCount      int64           `json:"subscriptionCount"`
	ViewsCount             int64           `json:"viewsCount"`
	UsersPercentage        float64         `json:"usersPercentage"`
	SubscriptionPercentage float64         `json:"subscriptionPercentage"`
	ViewsPercentage        float64         `json:"viewsPercentage"`
	UsersProfit            bool            `json:"usersProfit"`
	SubscriptionProfit     bool            `json:"subscriptionProfit"`
	ViewsProfit            bool            `json:"viewsProfit"`
}

// PadSeries turns a newest-first slice into an oldest-first series of exactly
// DashboardSeriesLength points, left-padding with zero snapshots.
func PadSeries(newestFirst []*StatsSnapshot) []StatsSnapshot {
	if len(newestFirst) > DashboardSeriesLength {
		newestFirst = newestFirst[:DashboardSeriesLength]
	}

	// slots not covered by a snapshot stay zero
	series := make([]StatsSnapshot, DashboardSeriesLength)
	for i, snap := range newestFirst {
		series[DashboardSeriesLength-1-i] = *snap
	}
	return series
}

// ChangePercentage returns the month-over-month change of a counter and
// whether it is non-negative. A zero previous value yields curr*100.
func ChangePercentage(curr, prev int64) (float64, bool) {
	var pct float64
	if prev == 0 {
		pct = float64(curr) * 100
	} else {
		pct = float64(curr-prev) / float64(prev) * 100
	}
	return pct, !(pct < 0)
}

// BuildDashboard computes the dashboard payload from the newest-first snapshots
func BuildDashboard(newestFirst []*StatsSnapshot) *DashboardStats {
	series := PadSeries(newestFirst)
	curr := series[DashboardSeriesLength-1]
	prev := series[DashboardSeriesLength-2]

	out := &DashboardStats{
		Stats:             series,
		UsersCount:        curr.Users,
		SubscriptionCount: curr.Subscription,
		ViewsCount:        curr.Views,
	}
	out.UsersPercentage, out.UsersProfit = ChangePercentage(curr.Users, prev.Users)
	out.SubscriptionPercentage, out.SubscriptionProfit = ChangePercentage(curr.Subscription, prev.Subscription)
	out.ViewsPercentage, out.ViewsProfit = ChangePercentage(curr.Views, prev.Views)
	return out
}

// PeriodKey identifies the monthly stats period containing t
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}
