package api

import (
	"github.com/gin-gonic/gin"

	"github.com/JustJay7/ecourts-fetcher/internal/cache"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/database"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, store *database.Store, cache cache.Cache, clients *Clients, logger *logger.Logger, cfg *config.Config) {
	h := NewHandlers(store, cache, clients, logger, cfg)

	api := router.Group("/api")
	api.Use(rateLimitMiddleware(newRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow)))
	{
		api.GET("/health", h.HealthCheck)

		// Registry
		api.GET("/courts", h.ListCourts)
		api.GET("/courts/:code", h.GetCourt)

		// HC Services
		api.GET("/courts/:code/benches", h.ListBenches)
		api.GET("/courts/:code/case-types", h.ListCaseTypes)
		api.GET("/courts/:code/cases", h.CaseStatus)
		api.GET("/courts/:code/cases/party", h.CaseStatusByParty)
		api.POST("/courts/:code/cases/bulk", h.BulkCaseStatus)
		api.GET("/courts/:code/orders", h.CourtOrders)
		api.GET("/courts/:code/cause-list", h.CauseList)

		// Judgments
		api.GET("/judgments", h.SearchJudgments)
		api.GET("/sci/judgments", h.SCIJudgments)

		// Stored results
		api.GET("/cases", h.ListCases)
		api.GET("/cases/:id", h.GetCase)
		api.GET("/queries", h.ListQueries)

		// Cache
		api.GET("/cache/stats", h.CacheStats)
		api.DELETE("/cache", h.ClearCache)

		// CAPTCHA endpoints
		api.GET("/captcha", h.PendingCaptchas)
		api.GET("/captcha/:id", h.GetCaptcha)
		api.POST("/captcha/:id/solve", h.SolveCaptcha)
	}
}
