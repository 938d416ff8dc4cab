package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/pkg/models"
)

// MetricDelta is one telemetry delivery flattened into the increments
// and appends applied to a VideoMetric row.
type MetricDelta struct {
	UserID         string
	WatchTimeMs    int64
	DownloadedByte int64
	RebufferMs     int64
	Sample         models.PlaybackPoint
	SwitchEvents   []models.SwitchEvent
	SegmentMetrics []models.SegmentMetric
}

// UpsertVideoMetric applies one delivery to the per-(video, session)
// accumulator in a single statement. Owner fields are set only on
// first insert; totals are incremented and samples appended, so
// concurrent deliveries for the same session never lose updates.
func (r *Repository) UpsertVideoMetric(ctx context.Context, videoID, sessionID string, delta MetricDelta) error {
	sampleJSON, err := json.Marshal([]models.PlaybackPoint{delta.Sample})
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	switchJSON, err := json.Marshal(delta.SwitchEvents)
	if err != nil {
		return fmt.Errorf("failed to marshal switch events: %w", err)
	}
	segmentJSON, err := json.Marshal(delta.SegmentMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal segment metrics: %w", err)
	}

	query := `
		INSERT INTO video_metrics (
			video_id, session_id, user_id, samples, switch_events, segment_metrics,
			watch_time_ms, downloaded_bytes, rebuffer_ms,
			sample_count, bitrate_kbps_sum, throughput_kbps_sum, switch_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12)
		ON CONFLICT (video_id, session_id) DO UPDATE
		SET samples = video_metrics.samples || EXCLUDED.samples,
		    switch_events = video_metrics.switch_events || EXCLUDED.switch_events,
		    segment_metrics = video_metrics.segment_metrics || EXCLUDED.segment_metrics,
		    watch_time_ms = video_metrics.watch_time_ms + EXCLUDED.watch_time_ms,
		    downloaded_bytes = video_metrics.downloaded_bytes + EXCLUDED.downloaded_bytes,
		    rebuffer_ms = video_metrics.rebuffer_ms + EXCLUDED.rebuffer_ms,
		    sample_count = video_metrics.sample_count + 1,
		    bitrate_kbps_sum = video_metrics.bitrate_kbps_sum + EXCLUDED.bitrate_kbps_sum,
		    throughput_kbps_sum = video_metrics.throughput_kbps_sum + EXCLUDED.throughput_kbps_sum,
		    switch_count = video_metrics.switch_count + EXCLUDED.switch_count,
		    updated_at = now()
	`

	_, err = r.db.Pool.Exec(ctx, query,
		videoID, sessionID, delta.UserID, sampleJSON, switchJSON, segmentJSON,
		delta.WatchTimeMs, delta.DownloadedByte, delta.RebufferMs,
		delta.Sample.BitrateKbps, delta.Sample.ThroughputKbps, len(delta.SwitchEvents),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video metric: %w", err)
	}
	return nil
}

// SessionDelta is one telemetry delivery flattened into the snapshot
// overwrite and history appends applied to a StreamingSession row.
type SessionDelta struct {
	VideoID            string
	UserID             string
	AvgThroughputKbps  float64
	LastVariantProfile string
	LastBitrateKbps    float64
	LastClientMeta     *models.ClientMeta
	SwitchEvents       []models.SwitchEvent
	NetworkSample      models.NetworkSample
	RebufferEvents     int64
}

// UpsertStreamingSession overwrites the latest-snapshot fields and
// appends history in a single statement keyed by session id.
func (r *Repository) UpsertStreamingSession(ctx context.Context, sessionID string, delta SessionDelta) error {
	metaJSON, err := json.Marshal(delta.LastClientMeta)
	if err != nil {
		return fmt.Errorf("failed to marshal client meta: %w", err)
	}
	switchJSON, err := json.Marshal(delta.SwitchEvents)
	if err != nil {
		return fmt.Errorf("failed to marshal switch history: %w", err)
	}
	sampleJSON, err := json.Marshal([]models.NetworkSample{delta.NetworkSample})
	if err != nil {
		return fmt.Errorf("failed to marshal network sample: %w", err)
	}

	query := `
		INSERT INTO streaming_sessions (
			session_id, video_id, user_id, avg_throughput_kbps, last_variant_profile,
			last_bitrate_kbps, last_client_meta, switch_history, network_samples, rebuffer_events
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE
		SET video_id = EXCLUDED.video_id,
		    user_id = EXCLUDED.user_id,
		    avg_throughput_kbps = EXCLUDED.avg_throughput_kbps,
		    last_variant_profile = EXCLUDED.last_variant_profile,
		    last_bitrate_kbps = EXCLUDED.last_bitrate_kbps,
		    last_client_meta = EXCLUDED.last_client_meta,
		    switch_history = streaming_sessions.switch_history || EXCLUDED.switch_history,
		    network_samples = streaming_sessions.network_samples || EXCLUDED.network_samples,
		    rebuffer_events = streaming_sessions.rebuffer_events + EXCLUDED.rebuffer_events,
		    updated_at = now()
	`

	_, err = r.db.Pool.Exec(ctx, query,
		sessionID, delta.VideoID, delta.UserID, delta.AvgThroughputKbps, delta.LastVariantProfile,
		delta.LastBitrateKbps, metaJSON, switchJSON, sampleJSON, delta.RebufferEvents,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert streaming session: %w", err)
	}
	return nil
}

// AnalyticsDelta is the per-delivery bump applied to a video's
// running analytics counters.
type AnalyticsDelta struct {
	WatchTimeMs        int64
	DownloadedBytes    int64
	RebufferMs         int64
	ThroughputKbps     int64
	SessionID          string
	LastVariantProfile string
}

// BumpVideoAnalytics increments the video-level counters, keeps a
// running maximum of peak throughput and overwrites the last-session
// pointers, all in one statement.
func (r *Repository) BumpVideoAnalytics(ctx context.Context, videoID string, delta AnalyticsDelta) error {
	query := `
		UPDATE videos
		SET total_watch_time_ms = total_watch_time_ms + $2,
		    total_bytes_delivered = total_bytes_delivered + $3,
		    total_rebuffer_ms = total_rebuffer_ms + $4,
		    sessions = sessions + 1,
		    peak_throughput_kbps = GREATEST(peak_throughput_kbps, $5),
		    last_session_id = $6,
		    last_variant_profile = $7,
		    updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		videoID, delta.WatchTimeMs, delta.DownloadedBytes, delta.RebufferMs,
		delta.ThroughputKbps, delta.SessionID, delta.LastVariantProfile,
	)
	if err != nil {
		return fmt.Errorf("failed to bump video analytics: %w", err)
	}
	return nil
}

// GetMetricsSummary aggregates VideoMetric rows updated within the
// window into one summary.
func (r *Repository) GetMetricsSummary(ctx context.Context, videoID string, windowMinutes int) (*models.MetricsSummary, error) {
	query := `
		SELECT COALESCE(SUM(watch_time_ms), 0),
		       COALESCE(SUM(downloaded_bytes), 0),
		       COALESCE(SUM(rebuffer_ms), 0),
		       COALESCE(SUM(bitrate_kbps_sum) / NULLIF(SUM(sample_count), 0), 0),
		       COALESCE(SUM(throughput_kbps_sum) / NULLIF(SUM(sample_count), 0), 0),
		       COALESCE(SUM(switch_count), 0),
		       COUNT(*)
		FROM video_metrics
		WHERE video_id = $1
		  AND updated_at >= now() - ($2 * interval '1 minute')
	`

	var summary models.MetricsSummary
	err := r.db.Pool.QueryRow(ctx, query, videoID, windowMinutes).Scan(
		&summary.WatchTimeMs, &summary.DownloadedBytes, &summary.RebufferMs,
		&summary.AvgBitrateKbps, &summary.AvgThroughputKbps, &summary.SwitchEvents,
		&summary.Sessions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	return &summary, nil
}

// GetStreamingSession retrieves one session by id.
func (r *Repository) GetStreamingSession(ctx context.Context, sessionID string) (*models.StreamingSession, error) {
	query := `
		SELECT session_id, video_id, user_id, avg_throughput_kbps, last_variant_profile,
		       last_bitrate_kbps, last_client_meta, switch_history, network_samples,
		       rebuffer_events, started_at, updated_at
		FROM streaming_sessions
		WHERE session_id = $1
	`

	var s models.StreamingSession
	var metaJSON, switchJSON, samplesJSON []byte
	err := r.db.Pool.QueryRow(ctx, query, sessionID).Scan(
		&s.SessionID, &s.VideoID, &s.UserID, &s.AvgThroughputKbps, &s.LastVariantProfile,
		&s.LastBitrateKbps, &metaJSON, &switchJSON, &samplesJSON,
		&s.RebufferEvents, &s.StartedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("streaming session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streaming session: %w", err)
	}

	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &s.LastClientMeta)
	}
	if len(switchJSON) > 0 {
		if err := json.Unmarshal(switchJSON, &s.SwitchHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal switch history: %w", err)
		}
	}
	if len(samplesJSON) > 0 {
		if err := json.Unmarshal(samplesJSON, &s.NetworkSamples); err != nil {
			return nil, fmt.Errorf("failed to unmarshal network samples: %w", err)
		}
	}

	return &s, nil
}
