package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/database"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/internal/middleware"
	"github.com/videotube/videotube/internal/publication"
)

// publishVideo ingests a new video from a multipart form and kicks
// off encoding.
func (api *API) publishVideo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		api.respondError(c, apperr.Unauthorized("authentication required"))
		return
	}

	sourceHeader, err := c.FormFile("video")
	if err != nil {
		api.respondError(c, apperr.Validation("video file is required"))
		return
	}
	thumbHeader, err := c.FormFile("thumbnail")
	if err != nil {
		api.respondError(c, apperr.Validation("thumbnail is required"))
		return
	}

	source, err := sourceHeader.Open()
	if err != nil {
		api.respondError(c, apperr.Validation("could not read video file"))
		return
	}
	defer source.Close()

	thumb, err := thumbHeader.Open()
	if err != nil {
		api.respondError(c, apperr.Validation("could not read thumbnail"))
		return
	}
	defer thumb.Close()

	result, err := api.publication.Publish(c.Request.Context(), publication.Request{
		OwnerID:     userID,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Source: publication.MediaUpload{
			Reader:      source,
			Size:        sourceHeader.Size,
			Filename:    sourceHeader.Filename,
			ContentType: sourceHeader.Header.Get("Content-Type"),
		},
		Thumbnail: publication.MediaUpload{
			Reader:      thumb,
			Size:        thumbHeader.Size,
			Filename:    thumbHeader.Filename,
			ContentType: thumbHeader.Header.Get("Content-Type"),
		},
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"video":           result.Video,
		"encoding_job_id": result.JobID,
	})
}

// listVideos returns a paginated listing of published videos.
func (api *API) listVideos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	videos, err := api.repo.ListVideos(c.Request.Context(), database.ListVideosOptions{
		Query:    c.Query("query"),
		OwnerID:  c.Query("userId"),
		SortBy:   c.Query("sortBy"),
		SortType: c.Query("sortType"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": videos,
		"page":   page,
		"limit":  limit,
	})
}

// getVideo returns a video with its owner embedded. Every read bumps
// the view counter; there is no per-viewer dedup.
func (api *API) getVideo(c *gin.Context) {
	videoID := c.Param("id")
	ctx := c.Request.Context()

	if api.cache != nil {
		if cached, err := api.cache.GetVideo(ctx, videoID); err == nil && cached != nil {
			metrics.RecordCacheAccess("video", true)
			if err := api.repo.IncrementViews(ctx, videoID); err != nil {
				api.log.WithVideoID(videoID).ErrorWithErr("failed to increment views", err)
			}
			c.JSON(http.StatusOK, cached)
			return
		}
		metrics.RecordCacheAccess("video", false)
	}

	video, err := api.repo.GetVideoWithOwner(ctx, videoID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	if err := api.repo.IncrementViews(ctx, videoID); err != nil {
		api.log.WithVideoID(videoID).ErrorWithErr("failed to increment views", err)
	}

	if api.cache != nil {
		if err := api.cache.SetVideo(ctx, video, time.Minute); err != nil {
			api.log.WithVideoID(videoID).ErrorWithErr("failed to cache video", err)
		}
	}

	c.JSON(http.StatusOK, video)
}

// updateVideo patches owner-editable metadata.
func (api *API) updateVideo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	videoID := c.Param("id")

	var body struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Thumbnail   *string `json:"thumbnail"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		api.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	if err := api.requireOwner(c, videoID, userID); err != nil {
		api.respondError(c, err)
		return
	}

	video, err := api.repo.UpdateVideoMeta(c.Request.Context(), videoID, userID, database.VideoMetaUpdate{
		Title:       body.Title,
		Description: body.Description,
		Thumbnail:   body.Thumbnail,
	})
	if err != nil {
		api.respondError(c, err)
		return
	}

	api.invalidateVideo(c, videoID)
	c.JSON(http.StatusOK, video)
}

// deleteVideo removes a video and its dependent records.
func (api *API) deleteVideo(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	videoID := c.Param("id")

	if err := api.requireOwner(c, videoID, userID); err != nil {
		api.respondError(c, err)
		return
	}

	if err := api.repo.DeleteVideo(c.Request.Context(), videoID, userID); err != nil {
		api.respondError(c, err)
		return
	}

	api.invalidateVideo(c, videoID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// togglePublish flips the publish flag.
func (api *API) togglePublish(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	videoID := c.Param("id")

	if err := api.requireOwner(c, videoID, userID); err != nil {
		api.respondError(c, err)
		return
	}

	isPublish, err := api.repo.TogglePublish(c.Request.Context(), videoID, userID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	api.invalidateVideo(c, videoID)
	c.JSON(http.StatusOK, gin.H{"is_publish": isPublish})
}

// requireOwner fails fast with Unauthorized when the caller does not
// own the video, before any mutation runs.
func (api *API) requireOwner(c *gin.Context, videoID, userID string) error {
	video, err := api.repo.GetVideo(c.Request.Context(), videoID)
	if err != nil {
		return err
	}
	if video.OwnerID != userID {
		return apperr.Unauthorized("you do not own this video")
	}
	return nil
}

func (api *API) invalidateVideo(c *gin.Context, videoID string) {
	if api.cache == nil {
		return
	}
	if err := api.cache.DeleteVideo(c.Request.Context(), videoID); err != nil {
		api.log.WithVideoID(videoID).ErrorWithErr("failed to invalidate video cache", err)
	}
}
