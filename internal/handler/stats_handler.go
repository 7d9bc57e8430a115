package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/service"
)

// StatsHandler serves the admin dashboard
type StatsHandler struct {
	dashboard *service.DashboardService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(dashboard *service.DashboardService) *StatsHandler {
	return &StatsHandler{dashboard: dashboard}
}

// GetDashboardStats handles GET /api/v1/admin/stats
func (h *StatsHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.dashboard.GetDashboardStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":                true,
		"stats":                  stats.Stats,
		"usersCount":             stats.UsersCount,
		"subscriptionCount":      stats.SubscriptionCount,
		"viewsCount":             stats.ViewsCount,
		"usersPercentage":        stats.UsersPercentage,
		"subscriptionPercentage": stats.SubscriptionPercentage,
		"viewsPercentage":        stats.ViewsPercentage,
		"usersProfit":            stats.UsersProfit,
		"subscriptionProfit":     stats.SubscriptionProfit,
		"viewsProfit":            stats.ViewsProfit,
	})
}
