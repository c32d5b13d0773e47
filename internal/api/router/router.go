package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/videoforge/mediagen-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint - reports DB and broker connectivity
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "up"
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		brokerStatus := "up"
		if !deps.RabbitClient.IsConnected() {
			brokerStatus = "down"
			status = http.StatusServiceUnavailable
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status":   overall,
			"service":  "mediagen-api-service",
			"database": dbStatus,
			"broker":   brokerStatus,
		})
	})

	generationHandler := handler.NewGenerationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		generations := v1.Group("/generations")
		{
			// POST /api/v1/generations - Create a new generation job
			generations.POST("", generationHandler.CreateGeneration)

			// GET /api/v1/generations - List generations with filtering and pagination
			generations.GET("", generationHandler.ListGenerations)

			// GET /api/v1/generations/:generation_id - Get generation details
			generations.GET("/:generation_id", generationHandler.GetGeneration)

			// POST /api/v1/generations/:generation_id/cancel - Cancel a pending generation
			generations.POST("/:generation_id/cancel", generationHandler.CancelGeneration)

			// DELETE /api/v1/generations/:generation_id - Delete a terminal generation
			generations.DELETE("/:generation_id", generationHandler.DeleteGeneration)
		}
	}

	return r
}
