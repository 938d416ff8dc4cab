package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/database"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/pkg/models"
)

type mockMetricStore struct {
	mock.Mock
}

func (m *mockMetricStore) UpsertVideoMetric(ctx context.Context, videoID, sessionID string, delta database.MetricDelta) error {
	args := m.Called(ctx, videoID, sessionID, delta)
	return args.Error(0)
}

func (m *mockMetricStore) UpsertStreamingSession(ctx context.Context, sessionID string, delta database.SessionDelta) error {
	args := m.Called(ctx, sessionID, delta)
	return args.Error(0)
}

func (m *mockMetricStore) BumpVideoAnalytics(ctx context.Context, videoID string, delta database.AnalyticsDelta) error {
	args := m.Called(ctx, videoID, delta)
	return args.Error(0)
}

func (m *mockMetricStore) GetMetricsSummary(ctx context.Context, videoID string, windowMinutes int) (*models.MetricsSummary, error) {
	args := m.Called(ctx, videoID, windowMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MetricsSummary), args.Error(1)
}

func testService(t *testing.T, store MetricStore) *Service {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	assert.NoError(t, err)
	return NewService(store, logger)
}

func report(sessionID string, watchMs int64) models.TelemetryReport {
	return models.TelemetryReport{
		SessionID: sessionID,
		Playback: models.PlaybackReport{
			WatchTimeMs:     watchMs,
			DownloadedBytes: 2048,
			RebufferMs:      100,
			BitrateKbps:     1400,
			VariantProfile:  "480p",
		},
		Network: models.NetworkReport{AvgThroughputKbps: 3000, LatencyMs: 25},
	}
}

func TestRecord_MissingSessionID(t *testing.T) {
	svc := testService(t, new(mockMetricStore))

	err := svc.Record(context.Background(), uuid.New().String(), "", report("", 1000))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRecord_InvalidVideoID(t *testing.T) {
	svc := testService(t, new(mockMetricStore))

	err := svc.Record(context.Background(), "not-a-uuid", "", report("sess-1", 1000))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRecord_AppliesThreeUpdates(t *testing.T) {
	videoID := uuid.New().String()
	store := new(mockMetricStore)

	store.On("UpsertVideoMetric", mock.Anything, videoID, "sess-1", mock.MatchedBy(func(d database.MetricDelta) bool {
		return d.WatchTimeMs == 1000 && d.DownloadedByte == 2048 && d.RebufferMs == 100 &&
			d.Sample.BitrateKbps == 1400 && d.Sample.ThroughputKbps == 3000
	})).Return(nil)
	store.On("UpsertStreamingSession", mock.Anything, "sess-1", mock.MatchedBy(func(d database.SessionDelta) bool {
		return d.VideoID == videoID && d.AvgThroughputKbps == 3000 && d.LastVariantProfile == "480p"
	})).Return(nil)
	store.On("BumpVideoAnalytics", mock.Anything, videoID, mock.MatchedBy(func(d database.AnalyticsDelta) bool {
		return d.WatchTimeMs == 1000 && d.SessionID == "sess-1" && d.ThroughputKbps == 3000
	})).Return(nil)

	svc := testService(t, store)

	err := svc.Record(context.Background(), videoID, "user-1", report("sess-1", 1000))
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRecord_DeliveriesAccumulate(t *testing.T) {
	videoID := uuid.New().String()
	store := new(mockMetricStore)

	var total int64
	store.On("UpsertVideoMetric", mock.Anything, videoID, "sess-1", mock.Anything).
		Run(func(args mock.Arguments) {
			total += args.Get(3).(database.MetricDelta).WatchTimeMs
		}).Return(nil)
	store.On("UpsertStreamingSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("BumpVideoAnalytics", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := testService(t, store)

	// Two deliveries for the same session sum counter-style: the
	// upsert increments rather than overwrites.
	assert.NoError(t, svc.Record(context.Background(), videoID, "", report("sess-1", 1000)))
	assert.NoError(t, svc.Record(context.Background(), videoID, "", report("sess-1", 1500)))
	assert.Equal(t, int64(2500), total)
}

func TestRecord_ThroughputFallback(t *testing.T) {
	videoID := uuid.New().String()
	store := new(mockMetricStore)

	store.On("UpsertVideoMetric", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(d database.MetricDelta) bool {
		return d.Sample.ThroughputKbps == 2200
	})).Return(nil)
	store.On("UpsertStreamingSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("BumpVideoAnalytics", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := testService(t, store)

	r := report("sess-1", 500)
	r.Network.AvgThroughputKbps = 0
	r.Playback.AverageThroughputKbps = 2200

	assert.NoError(t, svc.Record(context.Background(), videoID, "", r))
	store.AssertExpectations(t)
}

func TestSummary_DefaultWindow(t *testing.T) {
	videoID := uuid.New().String()
	store := new(mockMetricStore)
	store.On("GetMetricsSummary", mock.Anything, videoID, DefaultSummaryWindowMinutes).
		Return(&models.MetricsSummary{WatchTimeMs: 2500, Sessions: 2}, nil)

	svc := testService(t, store)

	summary, err := svc.Summary(context.Background(), videoID, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2500), summary.WatchTimeMs)
	store.AssertExpectations(t)
}

func TestSummary_InvalidVideoID(t *testing.T) {
	svc := testService(t, new(mockMetricStore))

	_, err := svc.Summary(context.Background(), "nope", 10)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
