package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getManifest resolves the playback manifest for a format.
func (api *API) getManifest(c *gin.Context) {
	view, err := api.playback.ResolveManifest(
		c.Request.Context(),
		c.Param("id"),
		c.DefaultQuery("format", "hls"),
	)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// getSegment resolves a segment location for a variant. A non-ready
// variant yields 200 with status/progress so pollers can retry.
func (api *API) getSegment(c *gin.Context) {
	loc, err := api.playback.ResolveSegment(
		c.Request.Context(),
		c.Param("id"),
		c.Param("label"),
		c.Param("segment"),
	)
	if err != nil {
		api.respondError(c, err)
		return
	}

	if loc.SegmentURL == "" {
		c.JSON(http.StatusOK, gin.H{
			"message":          "variant not ready",
			"label":            loc.Label,
			"variant_status":   loc.VariantStatus,
			"job_status":       loc.JobStatus,
			"progress_percent": loc.ProgressPercent,
		})
		return
	}

	c.JSON(http.StatusOK, loc)
}
