package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contaflow-reconciliation/internal/api/handler"
	"github.com/contaflow-reconciliation/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	suggestionHandler *handler.SuggestionHandler,
	matchHandler *handler.MatchHandler,
	batchHandler *handler.BatchHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Suggestion building and decisions
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id/suggestions", suggestionHandler.ListForAccount)
		}

		suggestions := v1.Group("/suggestions")
		{
			suggestions.POST("/:id/confirm", suggestionHandler.Confirm)
			suggestions.POST("/:id/reject", suggestionHandler.Reject)
		}

		// Direct match operations
		matches := v1.Group("/matches")
		{
			matches.POST("/manual", matchHandler.CreateManual)
			matches.POST("/:id/undo", matchHandler.Undo)
		}

		// Batch run control
		batchRuns := v1.Group("/batch-runs")
		{
			batchRuns.POST("", batchHandler.Start)
			batchRuns.GET("/:id", batchHandler.GetStatus)
			batchRuns.GET("/:id/stats", batchHandler.GetStats)
			batchRuns.POST("/:id/pause", batchHandler.Pause)
			batchRuns.POST("/:id/resume", batchHandler.Resume)
			batchRuns.POST("/:id/reset", batchHandler.Reset)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
