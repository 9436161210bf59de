package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/config"
	"github.com/ignatzorin/bounty-indexer/internal/http/handlers"
	"github.com/ignatzorin/bounty-indexer/internal/http/middleware"
	newHandler "github.com/ignatzorin/bounty-indexer/internal/interface/http/handler"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	eventHandler *handlers.EventHandler,
	disputeHandler *handlers.DisputeHandler,
	blobHandler *handlers.BlobHandler,
	wsHandler *handlers.WSHandler,
	tokens *service.OperatorTokens,
	// Clean Architecture handlers
	claimHandler *newHandler.ClaimHandler,
	viewHandler *newHandler.ViewHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "маршрут не найден")
	})

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws/invalidations", wsHandler.Handle)

	api := r.Group("/api")
	limited := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	// Приём событий из цепочки
	events := api.Group("/events")
	events.Use(limited)
	{
		events.POST("", eventHandler.Ingest)
		events.POST("/batch", eventHandler.IngestBatch)
	}

	// Read side
	api.GET("/tasks/:chainId/:taskId", viewHandler.GetTask)
	api.GET("/disputes/:chainId/:disputeId", viewHandler.GetDispute)
	api.GET("/agents/:address", viewHandler.GetAgent)
	api.GET("/blobs/:cid", blobHandler.Get)

	// Операции агентов
	agents := api.Group("/tasks/:chainId/:taskId")
	agents.Use(limited)
	{
		agents.POST("/claims", claimHandler.PrepareClaim)
		agents.POST("/submissions", claimHandler.SubmitWork)
		agents.POST("/verdicts", claimHandler.SubmitVerdict)
	}

	// Операторские маршруты
	admin := api.Group("/admin")
	{
		deadLetters := admin.Group("/dead-letters")
		deadLetters.Use(middleware.OperatorAuth(tokens, middleware.ScopeDeadLetters))
		deadLetters.GET("", eventHandler.ListDeadLetters)
		deadLetters.POST("/:id/replay", middleware.UUIDValidator("id"), eventHandler.ReplayDeadLetter)

		disputes := admin.Group("/disputes/:chainId/:disputeId")
		disputes.Use(middleware.OperatorAuth(tokens, middleware.ScopeDisputes))
		disputes.POST("/resolve", disputeHandler.Resolve)
		disputes.POST("/cancel", disputeHandler.Cancel)
	}

	return r
}
