package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/middleware"
)

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	limiter := middleware.NewRateLimiter(50, 100)
	go limiter.Cleanup()

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Owner-facing video CRUD
		authed := v1.Group("/")
		authed.Use(middleware.JWTAuth())
		{
			authed.GET("/videos", api.listVideos)
			authed.POST("/videos", api.publishVideo)
			authed.GET("/videos/:id", api.getVideo)
			authed.PATCH("/videos/:id", api.updateVideo)
			authed.DELETE("/videos/:id", api.deleteVideo)
			authed.PATCH("/videos/toggle/publish/:id", api.togglePublish)
			authed.GET("/videos/:id/encoding", api.getEncodingStatus)
			authed.GET("/videos/:id/metrics", api.getMetricsSummary)
			authed.POST("/videos/:id/metrics", api.recordTelemetry)
		}

		// Playback reads are open so any player can fetch them.
		open := v1.Group("/")
		open.Use(middleware.OptionalAuth())
		{
			open.GET("/videos/:id/manifest", api.getManifest)
			open.GET("/videos/:id/segments/:label/:segment", api.getSegment)
		}

		// Workers authenticate out of band; the limiter caps a
		// runaway fleet.
		v1.POST("/videos/encoding/callback/:jobId", limiter.Middleware(), api.encodingCallback)
	}

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError maps a service error onto the taxonomy's status code.
func (api *API) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		api.log.ErrorWithErr("request failed", err)
	}
	c.JSON(status, gin.H{"error": apperr.ClientMessage(err)})
}
