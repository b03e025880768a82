package api

import (
	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/api/handler"
	"github.com/marginality/indexing-admin/internal/api/middleware"
	"github.com/marginality/indexing-admin/internal/config"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/repository"
	"github.com/marginality/indexing-admin/internal/service"
)

// Services bundles the service layer for router construction.
type Services struct {
	TestRuns *service.TestRunService
	Unlock   *service.UnlockService
	Fixtures *service.FixtureService
	Ops      *service.OpsService
	Ledger   *repository.TestRunRepository
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, svcs *Services, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	testRunHandler := handler.NewTestRunHandler(svcs.TestRuns, svcs.Ledger)
	videoHandler := handler.NewVideoHandler(svcs.Unlock)
	fixtureHandler := handler.NewFixtureHandler(svcs.Fixtures)
	opsHandler := handler.NewOpsHandler(svcs.Ops)

	// Health check
	r.GET("/health", healthHandler.Health)

	// Admin API v1 routes
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth(cfg.Admin.APIToken))
	{
		// Test runs
		admin.POST("/test-runs", testRunHandler.Start)
		admin.GET("/test-runs", testRunHandler.List)
		admin.GET("/test-runs/:id", testRunHandler.Get)
		admin.GET("/test-runs/:id/logs", testRunHandler.Logs)
		admin.GET("/test-runs/:id/outputs", testRunHandler.Outputs)
		admin.GET("/test-runs/:id/outputs/transcript.json", testRunHandler.DownloadTranscript)
		admin.GET("/test-runs/:id/outputs/ocr.json", testRunHandler.DownloadOcr)

		// Videos
		admin.POST("/videos/:id/unlock-index", videoHandler.UnlockIndex)

		// Fixtures
		admin.POST("/fixtures", fixtureHandler.Create)
		admin.GET("/fixtures", fixtureHandler.List)
		admin.GET("/fixtures/:id", fixtureHandler.Get)

		// Dashboard
		admin.GET("/indexing/overview", opsHandler.Overview)
	}

	return r
}
