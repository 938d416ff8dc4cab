package models

import (
	"time"
)

// EncodingJob status constants. Terminal states are completed/failed,
// but callbacks may force any status; duplicates are tolerated.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// EncodingJob priority constants.
const (
	JobPriorityLow    = "low"
	JobPriorityNormal = "normal"
	JobPriorityHigh   = "high"
)

// EncodingJob tracks one encode pass over a video by the external
// worker fleet. The variant snapshot is decoupled from the video's
// live variant list so profile changes never alter an in-flight job.
type EncodingJob struct {
	ID                string          `json:"id" db:"id"`
	VideoID           string          `json:"video_id" db:"video_id"`
	Status            string          `json:"status" db:"status"`
	Priority          string          `json:"priority" db:"priority"`
	SourceURL         string          `json:"source_url" db:"source_url"`
	ThumbnailURL      string          `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	VariantsRequested []VariantSpec   `json:"variants_requested"`
	WorkerNode        string          `json:"worker_node,omitempty" db:"worker_node"`
	ProgressPercent   float64         `json:"progress_percent" db:"progress_percent"`
	Error             *JobError       `json:"error,omitempty"`
	MasterManifests   MasterManifests `json:"master_manifests"`
	LastHeartbeatAt   *time.Time      `json:"last_heartbeat_at,omitempty" db:"last_heartbeat_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// VariantSpec is the immutable per-variant encode request snapshot
// carried by a job.
type VariantSpec struct {
	Profile         string `json:"profile"`
	Container       string `json:"container"`
	BandwidthKbps   int    `json:"bandwidth_kbps"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Codec           string `json:"codec"`
	SegmentDuration int    `json:"segment_duration_seconds"`
}

// JobError is the worker-reported failure detail.
type JobError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// CallbackRequest is the worker callback body. Every field is
// optional; a missing body degrades to a heartbeat-only update.
type CallbackRequest struct {
	Status          string            `json:"status,omitempty"`
	ProgressPercent *float64          `json:"progress_percent,omitempty"`
	WorkerNode      string            `json:"worker_node,omitempty"`
	Error           *JobError         `json:"error,omitempty"`
	Variants        []CallbackVariant `json:"variants,omitempty"`
	MasterManifests MasterManifests   `json:"master_manifests"`
}

// CallbackVariant is one completed-rendition report inside a callback.
type CallbackVariant struct {
	Label          string          `json:"label,omitempty"`
	Profile        string          `json:"profile,omitempty"`
	Container      string          `json:"container,omitempty"`
	ManifestPath   string          `json:"manifest_path,omitempty"`
	SegmentsPath   string          `json:"segments_path,omitempty"`
	Storage        *VariantStorage `json:"storage,omitempty"`
	AvgBitrateKbps int             `json:"avg_bitrate_kbps,omitempty"`
	BandwidthKbps  int             `json:"bandwidth_kbps,omitempty"`
}

// TargetLabel resolves the variant label a callback entry addresses:
// the explicit label, or "{profile}-{container}" when absent.
func (v CallbackVariant) TargetLabel() string {
	if v.Label != "" {
		return v.Label
	}
	return v.Profile + "-" + v.Container
}

// ClampProgress clamps a progress percentage into [0,100].
func ClampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
