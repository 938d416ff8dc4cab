// Package publication ingests new videos: media upload, video record
// creation with its pending rendition set, and encoding job handoff.
package publication

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/internal/planner"
	"github.com/videotube/videotube/pkg/models"
)

// VideoStore is the persistence surface the service needs.
type VideoStore interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	CreateJob(ctx context.Context, job *models.EncodingJob) error
}

// ObjectStore is the media storage surface.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectName string) error
}

// JobQueue hands jobs to the external worker fleet.
type JobQueue interface {
	PublishJob(ctx context.Context, job *models.EncodingJob) error
}

// Service publishes videos.
type Service struct {
	store    VideoStore
	objects  ObjectStore
	queue    JobQueue
	profiles []models.EncodeProfile
	cdnBase  string
	cdnTag   string
	log      *logging.Logger
}

// NewService creates a publication service.
func NewService(store VideoStore, objects ObjectStore, queue JobQueue, profiles []models.EncodeProfile, cdnBase, cdnTag string, log *logging.Logger) *Service {
	return &Service{
		store:    store,
		objects:  objects,
		queue:    queue,
		profiles: profiles,
		cdnBase:  cdnBase,
		cdnTag:   cdnTag,
		log:      log,
	}
}

// MediaUpload is one inbound media part.
type MediaUpload struct {
	Reader      io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// Request carries everything needed to publish one video.
type Request struct {
	OwnerID     string
	Title       string
	Description string
	Source      MediaUpload
	Thumbnail   MediaUpload
}

// Result is the publish outcome.
type Result struct {
	Video *models.Video
	JobID string
}

// Publish stores both media objects, creates the video with its
// pending variants and enqueues exactly one encoding job. A second
// publish for the same content creates a new job without cancelling
// any job already in flight.
func (s *Service) Publish(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.Source.Reader == nil || req.Thumbnail.Reader == nil {
		return nil, apperr.Validation("video file and thumbnail are required")
	}

	videoID := uuid.New().String()

	sourceKey := fmt.Sprintf("videos/%s/original/%s", videoID, req.Source.Filename)
	if err := s.objects.Upload(ctx, sourceKey, req.Source.Reader, req.Source.Size, req.Source.ContentType); err != nil {
		metrics.RecordStorageOperation("upload", "error")
		return nil, apperr.Upstream(err, "failed to upload source media")
	}
	metrics.RecordStorageOperation("upload", "success")

	thumbKey := fmt.Sprintf("videos/%s/thumbnail/%s", videoID, req.Thumbnail.Filename)
	if err := s.objects.Upload(ctx, thumbKey, req.Thumbnail.Reader, req.Thumbnail.Size, req.Thumbnail.ContentType); err != nil {
		metrics.RecordStorageOperation("upload", "error")
		// Best-effort cleanup of the already-staged source object.
		if delErr := s.objects.Delete(ctx, sourceKey); delErr != nil {
			s.log.WithVideoID(videoID).ErrorWithErr("failed to clean up source object after thumbnail upload failure", delErr)
		}
		return nil, apperr.Upstream(err, "failed to upload thumbnail")
	}
	metrics.RecordStorageOperation("upload", "success")

	variants := planner.Plan(s.profiles)

	video := &models.Video{
		ID:          videoID,
		OwnerID:     req.OwnerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		SourceURL:   sourceKey,
		Thumbnail:   thumbKey,
		IsPublish:   true,
		Storage: models.StorageInfo{
			IngestionOrigin:    sourceKey,
			CDNPlaybackBaseURL: s.cdnBase,
			DefaultCDN:         s.cdnTag,
		},
		Playback: models.PlaybackInfo{DefaultFormat: models.FormatHLS},
		Variants: variants,
	}

	if err := s.store.CreateVideo(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	job := &models.EncodingJob{
		VideoID:           video.ID,
		Status:            models.JobStatusQueued,
		Priority:          models.JobPriorityNormal,
		SourceURL:         sourceKey,
		ThumbnailURL:      thumbKey,
		VariantsRequested: planner.Specs(variants),
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create encoding job: %w", err)
	}

	if err := s.queue.PublishJob(ctx, job); err != nil {
		// The job row exists; the external monitor re-dispatches
		// jobs that never got a worker heartbeat.
		s.log.WithJobID(job.ID).ErrorWithErr("failed to enqueue encoding job", err)
	}

	metrics.VideosPublishedTotal.Inc()
	metrics.JobsCreatedTotal.WithLabelValues(job.Priority).Inc()
	s.log.WithVideoID(video.ID).WithJobID(job.ID).Infof("published video with %d variants", len(variants))

	return &Result{Video: video, JobID: job.ID}, nil
}
