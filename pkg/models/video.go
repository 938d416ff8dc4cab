package models

import (
	"time"
)

// Video formats supported for segmented playback.
const (
	FormatHLS  = "hls"
	FormatDASH = "dash"
)

// Variant status constants. Transitions only move forward:
// pending -> processing -> ready|failed.
const (
	VariantStatusPending    = "pending"
	VariantStatusProcessing = "processing"
	VariantStatusReady      = "ready"
	VariantStatusFailed     = "failed"
)

// Video represents a published video and its encode/playback state.
type Video struct {
	ID          string         `json:"id" db:"id"`
	OwnerID     string         `json:"owner_id" db:"owner_id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	SourceURL   string         `json:"source_url" db:"source_url"`
	Thumbnail   string         `json:"thumbnail" db:"thumbnail"`
	Duration    float64        `json:"duration" db:"duration"`
	Views       int64          `json:"views" db:"views"`
	IsPublish   bool           `json:"is_publish" db:"is_publish"`
	Storage     StorageInfo    `json:"storage"`
	Playback    PlaybackInfo   `json:"playback"`
	Variants    []Variant      `json:"variants,omitempty"`
	Analytics   VideoAnalytics `json:"analytics"`
	Owner       *Owner         `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// StorageInfo describes where a video's media lives and how it is served.
type StorageInfo struct {
	IngestionOrigin    string `json:"ingestion_origin,omitempty"`
	CDNPlaybackBaseURL string `json:"cdn_playback_base_url,omitempty"`
	DefaultCDN         string `json:"default_cdn,omitempty"`
}

// PlaybackInfo holds the per-format master manifest metadata.
type PlaybackInfo struct {
	DefaultFormat string          `json:"default_format"`
	Manifests     MasterManifests `json:"manifests"`
}

// MasterManifests holds the authoritative master manifest per container.
type MasterManifests struct {
	HLS  *ManifestRef `json:"hls,omitempty"`
	DASH *ManifestRef `json:"dash,omitempty"`
}

// ManifestRef points at a published master manifest.
type ManifestRef struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// IsEmpty reports whether no manifest path has been published yet.
func (m MasterManifests) IsEmpty() bool {
	return (m.HLS == nil || m.HLS.Path == "") && (m.DASH == nil || m.DASH.Path == "")
}

// ForFormat returns the manifest ref for a container, or nil.
func (m MasterManifests) ForFormat(format string) *ManifestRef {
	switch format {
	case FormatHLS:
		return m.HLS
	case FormatDASH:
		return m.DASH
	}
	return nil
}

// Variant is one concrete encoded rendition of a video. Labels are
// unique within a video: "{profile}-{container}".
type Variant struct {
	VideoID         string          `json:"-" db:"video_id"`
	Profile         string          `json:"profile" db:"profile"`
	Label           string          `json:"label" db:"label"`
	Container       string          `json:"container" db:"container"`
	BandwidthKbps   int             `json:"bandwidth_kbps" db:"bandwidth_kbps"`
	Width           int             `json:"width" db:"width"`
	Height          int             `json:"height" db:"height"`
	Codec           string          `json:"codec" db:"codec"`
	SegmentDuration int             `json:"segment_duration_seconds" db:"segment_duration_seconds"`
	Status          string          `json:"status" db:"status"`
	ManifestPath    string          `json:"manifest_path,omitempty" db:"manifest_path"`
	SegmentsPath    string          `json:"segments_path,omitempty" db:"segments_path"`
	Storage         *VariantStorage `json:"storage,omitempty"`
	AvgBitrateKbps  int             `json:"avg_bitrate_kbps" db:"avg_bitrate_kbps"`
	SwitchCount     int             `json:"switch_count" db:"switch_count"`
	LastPublishedAt *time.Time      `json:"last_published_at,omitempty" db:"last_published_at"`
}

// VariantStorage is a per-variant storage override.
type VariantStorage struct {
	Bucket        string `json:"bucket,omitempty"`
	PlaylistKey   string `json:"playlist_key,omitempty"`
	SegmentPrefix string `json:"segment_prefix,omitempty"`
	CDNBaseURL    string `json:"cdn_base_url,omitempty"`
}

// VideoAnalytics holds running playback totals for a video.
type VideoAnalytics struct {
	TotalWatchTimeMs    int64  `json:"total_watch_time_ms" db:"total_watch_time_ms"`
	TotalBytesDelivered int64  `json:"total_bytes_delivered" db:"total_bytes_delivered"`
	TotalRebufferMs     int64  `json:"total_rebuffer_ms" db:"total_rebuffer_ms"`
	PeakThroughputKbps  int64  `json:"peak_throughput_kbps" db:"peak_throughput_kbps"`
	LastSessionID       string `json:"last_session_id,omitempty" db:"last_session_id"`
	LastVariantProfile  string `json:"last_variant_profile,omitempty" db:"last_variant_profile"`
	Sessions            int64  `json:"sessions" db:"sessions"`
}

// Owner is the projected owner view embedded into video read models.
type Owner struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	FullName string `json:"full_name" db:"full_name"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
}

// ValidFormat reports whether format is a supported container.
func ValidFormat(format string) bool {
	return format == FormatHLS || format == FormatDASH
}
