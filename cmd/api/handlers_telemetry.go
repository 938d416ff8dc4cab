package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/middleware"
	"github.com/videotube/videotube/pkg/models"
)

// recordTelemetry ingests one client streaming report.
func (api *API) recordTelemetry(c *gin.Context) {
	var report models.TelemetryReport
	if err := c.ShouldBindJSON(&report); err != nil {
		api.respondError(c, apperr.Validation("invalid telemetry body"))
		return
	}

	userID, _ := middleware.GetUserID(c)

	if err := api.telemetry.Record(c.Request.Context(), c.Param("id"), userID, report); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recorded": true})
}

// getMetricsSummary aggregates recent telemetry for a video.
func (api *API) getMetricsSummary(c *gin.Context) {
	window, _ := strconv.Atoi(c.DefaultQuery("windowMinutes", "60"))

	summary, err := api.telemetry.Summary(c.Request.Context(), c.Param("id"), window)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
