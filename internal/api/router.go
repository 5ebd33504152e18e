package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qonto-ledger-sync/internal/api/handler"
	"github.com/qonto-ledger-sync/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	syncHandler *handler.SyncHandler,
	registry *prometheus.Registry,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Trigger and status operations
		sync := v1.Group("/sync")
		{
			sync.POST("", syncHandler.TriggerFullSync)
			sync.POST("/accounts/:id", syncHandler.TriggerAccountSync)
			sync.GET("/status", syncHandler.Status)
			sync.GET("/mappings", syncHandler.Mappings)
		}

		// Qonto connection operations
		v1.POST("/connection/test", syncHandler.TestConnection)
		v1.GET("/accounts", syncHandler.BankAccounts)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
