package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/smartops/custodian/internal/ledger"
	"github.com/smartops/custodian/internal/services"
)

var startTime = time.Now()
var Version = "1.0.0"

type SystemHandler struct {
	db        *gorm.DB
	custodian *ledger.Custodian
	feed      *services.ActivityFeed
}

func NewSystemHandler(db *gorm.DB, custodian *ledger.Custodian, feed *services.ActivityFeed) *SystemHandler {
	return &SystemHandler{db: db, custodian: custodian, feed: feed}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	dbStatus := "ok"
	statusCode := fiber.StatusOK

	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		statusCode = fiber.StatusServiceUnavailable
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "unreachable: " + err.Error()
		statusCode = fiber.StatusServiceUnavailable
	}

	overall := "ok"
	if statusCode != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  overall,
		"service": "custodian",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"uptime":  time.Since(startTime).String(),
		"db":      dbStatus,
	})
}

// DashboardOverview backs the landing page: recent activity across all
// partitions, per-partition entry counts, and the chain health summary.
func (h *SystemHandler) DashboardOverview(c *fiber.Ctx) error {
	activities, err := h.custodian.RecentActivity(c.Context(), 10)
	if err != nil {
		return ledgerError(c, err)
	}

	stats, err := h.custodian.StatsAll(c.Context())
	if err != nil {
		return ledgerError(c, err)
	}

	validations, err := h.custodian.ValidateAll(c.Context())
	if err != nil {
		return ledgerError(c, err)
	}

	totalEntries := 0
	counts := make(map[string]int, len(stats))
	for name, s := range stats {
		totalEntries += s.TotalEntries
		counts[name] = s.TotalEntries
	}

	chainsValid := true
	for _, v := range validations {
		if !v.Valid {
			chainsValid = false
			break
		}
	}

	return c.JSON(fiber.Map{
		"recent_activity":  activities,
		"total_entries":    totalEntries,
		"partition_counts": counts,
		"chains_valid":     chainsValid,
		"feed_subscribers": h.feed.Count(),
		"uptime":           time.Since(startTime).String(),
	})
}
