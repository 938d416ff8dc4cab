package models

import (
	"time"
)

// StreamingSession is the latest-state record for one playback session.
// The snapshot fields are overwritten on every report; histories are
// append-only.
type StreamingSession struct {
	SessionID          string          `json:"session_id" db:"session_id"`
	VideoID            string          `json:"video_id" db:"video_id"`
	UserID             string          `json:"user_id,omitempty" db:"user_id"`
	AvgThroughputKbps  float64         `json:"avg_throughput_kbps" db:"avg_throughput_kbps"`
	LastVariantProfile string          `json:"last_variant_profile,omitempty" db:"last_variant_profile"`
	LastBitrateKbps    float64         `json:"last_bitrate_kbps" db:"last_bitrate_kbps"`
	LastClientMeta     *ClientMeta     `json:"last_client_meta,omitempty"`
	SwitchHistory      []SwitchEvent   `json:"switch_history,omitempty"`
	NetworkSamples     []NetworkSample `json:"network_samples,omitempty"`
	RebufferEvents     int64           `json:"rebuffer_events" db:"rebuffer_events"`
	StartedAt          time.Time       `json:"started_at" db:"started_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// ClientMeta identifies the reporting player.
type ClientMeta struct {
	Device        string `json:"device,omitempty"`
	PlayerVersion string `json:"player_version,omitempty"`
	CDNEdge       string `json:"cdn_edge,omitempty"`
}

// VideoMetric is the per-(video, session) accumulator. Strictly one
// row per pair; totals are counter-style and double-count duplicate
// deliveries by design of the at-least-once contract.
type VideoMetric struct {
	VideoID        string          `json:"video_id" db:"video_id"`
	SessionID      string          `json:"session_id" db:"session_id"`
	UserID         string          `json:"user_id,omitempty" db:"user_id"`
	Samples        []PlaybackPoint `json:"samples,omitempty"`
	SwitchEvents   []SwitchEvent   `json:"switch_events,omitempty"`
	SegmentMetrics []SegmentMetric `json:"segment_metrics,omitempty"`
	Totals         MetricTotals    `json:"totals"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// MetricTotals are the running counters for one metric document.
type MetricTotals struct {
	WatchTimeMs     int64 `json:"watch_time_ms" db:"watch_time_ms"`
	DownloadedBytes int64 `json:"downloaded_bytes" db:"downloaded_bytes"`
	RebufferMs      int64 `json:"rebuffer_ms" db:"rebuffer_ms"`
}

// PlaybackPoint is one point-in-time playback/network measurement.
type PlaybackPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	BitrateKbps    float64   `json:"bitrate_kbps"`
	ThroughputKbps float64   `json:"throughput_kbps"`
	BufferMs       float64   `json:"buffer_ms"`
}

// SwitchEvent records one adaptive rendition switch.
type SwitchEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	FromProfile    string    `json:"from_profile,omitempty"`
	ToProfile      string    `json:"to_profile,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ThroughputKbps float64   `json:"throughput_kbps"`
}

// NetworkSample is one client network measurement.
type NetworkSample struct {
	Timestamp       time.Time `json:"timestamp"`
	ThroughputKbps  float64   `json:"throughput_kbps"`
	LatencyMs       float64   `json:"latency_ms"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
}

// SegmentMetric is one segment-download measurement.
type SegmentMetric struct {
	VariantProfile     string  `json:"variant_profile,omitempty"`
	SegmentIndex       int     `json:"segment_index"`
	DownloadDurationMs float64 `json:"download_duration_ms"`
	SizeBytes          int64   `json:"size_bytes"`
	TransferRateKbps   float64 `json:"transfer_rate_kbps"`
}

// TelemetryReport is one client telemetry delivery.
type TelemetryReport struct {
	SessionID string           `json:"session_id"`
	Playback  PlaybackReport   `json:"playback"`
	Network   NetworkReport    `json:"network"`
	Segments  []SegmentMetric  `json:"segments,omitempty"`
	Switches  []SwitchEvent    `json:"switches,omitempty"`
}

// PlaybackReport is the playback half of a telemetry delivery.
type PlaybackReport struct {
	WatchTimeMs           int64   `json:"watch_time_ms"`
	DownloadedBytes       int64   `json:"downloaded_bytes"`
	RebufferMs            int64   `json:"rebuffer_ms"`
	RebufferEvents        int64   `json:"rebuffer_events"`
	BitrateKbps           float64 `json:"bitrate_kbps"`
	TargetBitrateKbps     float64 `json:"target_bitrate_kbps"`
	AverageThroughputKbps float64 `json:"average_throughput_kbps"`
	BufferMs              float64 `json:"buffer_ms"`
	VariantProfile        string  `json:"variant_profile,omitempty"`
}

// NetworkReport is the network half of a telemetry delivery.
type NetworkReport struct {
	AvgThroughputKbps float64     `json:"avg_throughput_kbps"`
	LatencyMs         float64     `json:"latency_ms"`
	ClientMeta        *ClientMeta `json:"client_meta,omitempty"`
}

// EffectiveBitrateKbps picks the reported bitrate, falling back to the
// target bitrate.
func (p PlaybackReport) EffectiveBitrateKbps() float64 {
	if p.BitrateKbps > 0 {
		return p.BitrateKbps
	}
	return p.TargetBitrateKbps
}

// EffectiveThroughputKbps prefers the network average, falling back to
// the playback-side estimate.
func (r TelemetryReport) EffectiveThroughputKbps() float64 {
	if r.Network.AvgThroughputKbps > 0 {
		return r.Network.AvgThroughputKbps
	}
	return r.Playback.AverageThroughputKbps
}

// MetricsSummary is the windowed aggregate of VideoMetric rows.
type MetricsSummary struct {
	WatchTimeMs       int64   `json:"watch_time_ms"`
	DownloadedBytes   int64   `json:"downloaded_bytes"`
	RebufferMs        int64   `json:"rebuffer_ms"`
	AvgBitrateKbps    float64 `json:"avg_bitrate_kbps"`
	AvgThroughputKbps float64 `json:"avg_throughput_kbps"`
	SwitchEvents      int64   `json:"switch_events"`
	Sessions          int64   `json:"sessions"`
}
