package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/pkg/models"
)

const jobColumns = `
	id, video_id, status, priority, source_url, thumbnail_url, variants_requested,
	worker_node, progress_percent, error_code, error_message, master_manifests,
	last_heartbeat_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.EncodingJob, error) {
	var job models.EncodingJob
	var variantsJSON, manifestsJSON []byte
	var errCode, errMessage string

	err := row.Scan(
		&job.ID, &job.VideoID, &job.Status, &job.Priority, &job.SourceURL, &job.ThumbnailURL, &variantsJSON,
		&job.WorkerNode, &job.ProgressPercent, &errCode, &errMessage, &manifestsJSON,
		&job.LastHeartbeatAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(variantsJSON) > 0 {
		if err := json.Unmarshal(variantsJSON, &job.VariantsRequested); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requested variants: %w", err)
		}
	}
	if len(manifestsJSON) > 0 {
		if err := json.Unmarshal(manifestsJSON, &job.MasterManifests); err != nil {
			return nil, fmt.Errorf("failed to unmarshal master manifests: %w", err)
		}
	}
	if errCode != "" || errMessage != "" {
		job.Error = &models.JobError{Code: errCode, Message: errMessage}
	}

	return &job, nil
}

// CreateJob creates a new encoding job record
func (r *Repository) CreateJob(ctx context.Context, job *models.EncodingJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if job.Priority == "" {
		job.Priority = models.JobPriorityNormal
	}

	variantsJSON, err := json.Marshal(job.VariantsRequested)
	if err != nil {
		return fmt.Errorf("failed to marshal requested variants: %w", err)
	}

	query := `
		INSERT INTO encoding_jobs (id, video_id, status, priority, source_url, thumbnail_url, variants_requested)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		job.ID, job.VideoID, job.Status, job.Priority, job.SourceURL, job.ThumbnailURL, variantsJSON,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.EncodingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM encoding_jobs WHERE id = $1`

	job, err := scanJob(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("encoding job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// GetLatestJobByVideoID retrieves the most recently created job for a
// video. A video accumulates one job per publish; the newest one is
// authoritative for current encoding status.
func (r *Repository) GetLatestJobByVideoID(ctx context.Context, videoID string) (*models.EncodingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM encoding_jobs WHERE video_id = $1 ORDER BY created_at DESC LIMIT 1`

	job, err := scanJob(r.db.Pool.QueryRow(ctx, query, videoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("encoding job not found for this video")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}

	return job, nil
}

// JobCallbackUpdate is the field-set applied to a job by one worker
// callback. Nil fields are left untouched.
type JobCallbackUpdate struct {
	Status          *string
	ProgressPercent *float64
	WorkerNode      *string
	Error           *models.JobError
	MasterManifests *models.MasterManifests
	HeartbeatAt     time.Time
}

// ApplyJobCallback applies a callback as one targeted field-set
// statement; the heartbeat is always refreshed.
func (r *Repository) ApplyJobCallback(ctx context.Context, jobID string, update JobCallbackUpdate) (*models.EncodingJob, error) {
	var errCode, errMessage *string
	if update.Error != nil {
		errCode, errMessage = &update.Error.Code, &update.Error.Message
	}

	var manifestsJSON []byte
	if update.MasterManifests != nil {
		data, err := json.Marshal(update.MasterManifests)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal master manifests: %w", err)
		}
		manifestsJSON = data
	}

	query := `
		UPDATE encoding_jobs
		SET status = COALESCE($2, status),
		    progress_percent = COALESCE($3, progress_percent),
		    worker_node = COALESCE($4, worker_node),
		    error_code = COALESCE($5, error_code),
		    error_message = COALESCE($6, error_message),
		    master_manifests = COALESCE($7, master_manifests),
		    last_heartbeat_at = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.Pool.QueryRow(ctx, query,
		jobID, update.Status, update.ProgressPercent, update.WorkerNode,
		errCode, errMessage, manifestsJSON, update.HeartbeatAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("encoding job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply job callback: %w", err)
	}

	return job, nil
}
