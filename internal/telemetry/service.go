// Package telemetry aggregates client streaming reports into session,
// metric and video-level accumulators.
package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/database"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/pkg/models"
)

// MetricStore is the persistence surface for telemetry rollups.
type MetricStore interface {
	UpsertVideoMetric(ctx context.Context, videoID, sessionID string, delta database.MetricDelta) error
	UpsertStreamingSession(ctx context.Context, sessionID string, delta database.SessionDelta) error
	BumpVideoAnalytics(ctx context.Context, videoID string, delta database.AnalyticsDelta) error
	GetMetricsSummary(ctx context.Context, videoID string, windowMinutes int) (*models.MetricsSummary, error)
}

// Service records and summarizes telemetry.
type Service struct {
	store MetricStore
	log   *logging.Logger
}

// NewService creates a telemetry service.
func NewService(store MetricStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record folds one delivery into the three accumulators. The updates
// are independent and order-insensitive; each is a single atomic
// statement, so concurrent deliveries for the same session never lose
// counts. Duplicate deliveries double-count by contract.
func (s *Service) Record(ctx context.Context, videoID, userID string, report models.TelemetryReport) error {
	if strings.TrimSpace(report.SessionID) == "" {
		return apperr.Validation("session id is required")
	}
	if _, err := uuid.Parse(videoID); err != nil {
		return apperr.Validation("invalid video id")
	}

	now := time.Now().UTC()
	throughput := report.EffectiveThroughputKbps()

	metricDelta := database.MetricDelta{
		UserID:         userID,
		WatchTimeMs:    report.Playback.WatchTimeMs,
		DownloadedByte: report.Playback.DownloadedBytes,
		RebufferMs:     report.Playback.RebufferMs,
		Sample: models.PlaybackPoint{
			Timestamp:      now,
			BitrateKbps:    report.Playback.EffectiveBitrateKbps(),
			ThroughputKbps: throughput,
			BufferMs:       report.Playback.BufferMs,
		},
		SwitchEvents:   report.Switches,
		SegmentMetrics: report.Segments,
	}
	if err := s.store.UpsertVideoMetric(ctx, videoID, report.SessionID, metricDelta); err != nil {
		return err
	}

	sessionDelta := database.SessionDelta{
		VideoID:            videoID,
		UserID:             userID,
		AvgThroughputKbps:  throughput,
		LastVariantProfile: report.Playback.VariantProfile,
		LastBitrateKbps:    report.Playback.EffectiveBitrateKbps(),
		LastClientMeta:     report.Network.ClientMeta,
		SwitchEvents:       report.Switches,
		NetworkSample: models.NetworkSample{
			Timestamp:       now,
			ThroughputKbps:  throughput,
			LatencyMs:       report.Network.LatencyMs,
			DownloadedBytes: report.Playback.DownloadedBytes,
		},
		RebufferEvents: report.Playback.RebufferEvents,
	}
	if err := s.store.UpsertStreamingSession(ctx, report.SessionID, sessionDelta); err != nil {
		return err
	}

	analyticsDelta := database.AnalyticsDelta{
		WatchTimeMs:        report.Playback.WatchTimeMs,
		DownloadedBytes:    report.Playback.DownloadedBytes,
		RebufferMs:         report.Playback.RebufferMs,
		ThroughputKbps:     int64(throughput),
		SessionID:          report.SessionID,
		LastVariantProfile: report.Playback.VariantProfile,
	}
	if err := s.store.BumpVideoAnalytics(ctx, videoID, analyticsDelta); err != nil {
		return err
	}

	metrics.TelemetryReportsTotal.Inc()
	return nil
}

// DefaultSummaryWindowMinutes bounds the summary query when the caller
// does not supply a window.
const DefaultSummaryWindowMinutes = 60

// Summary aggregates recent per-session metrics for a video.
func (s *Service) Summary(ctx context.Context, videoID string, windowMinutes int) (*models.MetricsSummary, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, apperr.Validation("invalid video id")
	}
	if windowMinutes <= 0 {
		windowMinutes = DefaultSummaryWindowMinutes
	}
	return s.store.GetMetricsSummary(ctx, videoID, windowMinutes)
}
