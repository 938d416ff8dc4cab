// Package encoding tracks external worker progress via callbacks.
// The service never runs ffmpeg itself; workers report in and this
// package folds their reports into jobs, variants and manifests.
package encoding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/database"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/pkg/models"
)

// JobStore is the job persistence surface.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*models.EncodingJob, error)
	GetLatestJobByVideoID(ctx context.Context, videoID string) (*models.EncodingJob, error)
	ApplyJobCallback(ctx context.Context, jobID string, update database.JobCallbackUpdate) (*models.EncodingJob, error)
	MarkVariantReady(ctx context.Context, videoID, label string, update database.VariantReadyUpdate) error
	SetMasterManifests(ctx context.Context, videoID string, manifests models.MasterManifests, defaultFormat string) error
}

// ProgressCache caches job progress for cheap status polling.
type ProgressCache interface {
	SetJobProgress(ctx context.Context, jobID, status string, progress float64, ttl time.Duration) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// Tracker applies worker callbacks.
type Tracker struct {
	store JobStore
	cache ProgressCache
	log   *logging.Logger
}

// NewTracker creates a callback tracker. cache may be nil.
func NewTracker(store JobStore, cache ProgressCache, log *logging.Logger) *Tracker {
	return &Tracker{store: store, cache: cache, log: log}
}

// ApplyCallback folds one worker callback into the job row and, on
// completion, publishes the reported variants and master manifests.
// Callbacks are permissive: every field is optional, an empty body is
// a heartbeat, duplicates and out-of-order deliveries are tolerated.
func (t *Tracker) ApplyCallback(ctx context.Context, jobID string, req models.CallbackRequest) (*models.EncodingJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, apperr.Validation("invalid job id")
	}

	update := database.JobCallbackUpdate{HeartbeatAt: time.Now().UTC()}

	if req.Status != "" {
		status := req.Status
		update.Status = &status
	}
	if req.ProgressPercent != nil {
		progress := models.ClampProgress(*req.ProgressPercent)
		update.ProgressPercent = &progress
	}
	if req.WorkerNode != "" {
		node := req.WorkerNode
		update.WorkerNode = &node
	}
	if req.Error != nil {
		update.Error = req.Error
		// A reported error always forces the job into failed,
		// regardless of the status field the worker sent.
		failed := models.JobStatusFailed
		update.Status = &failed
	}
	if !req.MasterManifests.IsEmpty() {
		manifests := req.MasterManifests
		update.MasterManifests = &manifests
	}

	job, err := t.store.ApplyJobCallback(ctx, jobID, update)
	if err != nil {
		return nil, err
	}

	if job.Status == models.JobStatusCompleted {
		t.publishResults(ctx, job, req)
	}

	if t.cache != nil {
		if err := t.cache.SetJobProgress(ctx, job.ID, job.Status, job.ProgressPercent, 5*time.Minute); err != nil {
			t.log.WithJobID(job.ID).ErrorWithErr("failed to cache job progress", err)
		}
	}

	metrics.RecordCallback(job.Status)
	t.log.LogJobEvent(job.ID, "callback", job.Status, map[string]interface{}{
		"video_id": job.VideoID,
		"progress": job.ProgressPercent,
		"variants": len(req.Variants),
	})

	return job, nil
}

// publishResults marks each reported variant ready and installs the
// master manifests. Each variant update touches exactly one labeled
// row so a partial failure never corrupts siblings.
func (t *Tracker) publishResults(ctx context.Context, job *models.EncodingJob, req models.CallbackRequest) {
	now := time.Now().UTC()

	for _, cv := range req.Variants {
		avgBitrate := cv.AvgBitrateKbps
		if avgBitrate == 0 {
			avgBitrate = cv.BandwidthKbps
		}

		err := t.store.MarkVariantReady(ctx, job.VideoID, cv.TargetLabel(), database.VariantReadyUpdate{
			ManifestPath:   cv.ManifestPath,
			SegmentsPath:   cv.SegmentsPath,
			Storage:        cv.Storage,
			AvgBitrateKbps: avgBitrate,
			PublishedAt:    now,
		})
		if err != nil {
			// Unknown labels are logged and skipped; the rest of
			// the callback still applies.
			t.log.WithJobID(job.ID).WithVideoID(job.VideoID).
				ErrorWithErr("failed to mark variant ready: "+cv.TargetLabel(), err)
			continue
		}
		metrics.VariantsReadyTotal.Inc()
	}

	if !job.MasterManifests.IsEmpty() {
		defaultFormat := models.FormatDASH
		if ref := job.MasterManifests.ForFormat(models.FormatHLS); ref != nil && ref.Path != "" {
			defaultFormat = models.FormatHLS
		}
		if err := t.store.SetMasterManifests(ctx, job.VideoID, job.MasterManifests, defaultFormat); err != nil {
			t.log.WithVideoID(job.VideoID).ErrorWithErr("failed to set master manifests", err)
		}
	}

	if t.cache != nil {
		if err := t.cache.DeleteVideo(ctx, job.VideoID); err != nil {
			t.log.WithVideoID(job.VideoID).ErrorWithErr("failed to invalidate video cache", err)
		}
	}
}

// JobStatus is the encoding status view for a video.
type JobStatus struct {
	JobID           string               `json:"job_id"`
	Status          string               `json:"status"`
	ProgressPercent float64              `json:"progress_percent"`
	WorkerNode      string               `json:"worker_node,omitempty"`
	Error           *models.JobError     `json:"error,omitempty"`
	LastHeartbeatAt *time.Time           `json:"last_heartbeat_at,omitempty"`
	Variants        []models.VariantSpec `json:"variants_requested,omitempty"`
}

// StatusForVideo returns the authoritative encoding status for a
// video, taken from its most recent job.
func (t *Tracker) StatusForVideo(ctx context.Context, videoID string) (*JobStatus, error) {
	job, err := t.store.GetLatestJobByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	return &JobStatus{
		JobID:           job.ID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		WorkerNode:      job.WorkerNode,
		Error:           job.Error,
		LastHeartbeatAt: job.LastHeartbeatAt,
		Variants:        job.VariantsRequested,
	}, nil
}
