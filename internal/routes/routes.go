package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartops/custodian/internal/config"
	"github.com/smartops/custodian/internal/handlers"
	"github.com/smartops/custodian/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	ledgerHandler *handlers.LedgerHandler,
	activityHandler *handlers.ActivityHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)
	api.Put("/auth/password", authHandler.ChangePassword)

	// Dashboard
	api.Get("/dashboard/overview", systemHandler.DashboardOverview)

	// Ledger
	api.Post("/ledger/actions", ledgerHandler.RecordAction)
	api.Get("/ledger/activity", activityHandler.RecentActivity)
	api.Get("/ledger/validate", ledgerHandler.ValidateAll)
	api.Get("/ledger/stats", ledgerHandler.AllStats)
	api.Get("/ledger/partitions/:name/entries", ledgerHandler.ListEntries)
	api.Get("/ledger/partitions/:name/validate", ledgerHandler.ValidatePartition)
	api.Get("/ledger/partitions/:name/stats", ledgerHandler.PartitionStats)
	api.Get("/ledger/partitions/:name/export", ledgerHandler.ExportPartition)

	// Live feed (websocket)
	api.Get("/ledger/feed", activityHandler.UpgradeCheck(), activityHandler.HandleFeed())
}
