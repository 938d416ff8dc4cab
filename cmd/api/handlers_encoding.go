package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videotube/videotube/pkg/models"
)

// encodingCallback applies a worker progress report. The body is
// decoded permissively: a missing or partially-shaped body degrades to
// a heartbeat-only update rather than an error, so a misbehaving
// worker cannot wedge job state.
func (api *API) encodingCallback(c *gin.Context) {
	var req models.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.CallbackRequest{}
	}

	job, err := api.tracker.ApplyCallback(c.Request.Context(), c.Param("jobId"), req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":           job.ID,
		"status":           job.Status,
		"progress_percent": job.ProgressPercent,
	})
}

// getEncodingStatus returns the authoritative encoding state for a
// video, from its most recent job.
func (api *API) getEncodingStatus(c *gin.Context) {
	status, err := api.tracker.StatusForVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
