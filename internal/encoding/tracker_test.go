package encoding

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

type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) GetJob(ctx context.Context, id string) (*models.EncodingJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EncodingJob), args.Error(1)
}

func (m *mockJobStore) GetLatestJobByVideoID(ctx context.Context, videoID string) (*models.EncodingJob, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EncodingJob), args.Error(1)
}

func (m *mockJobStore) ApplyJobCallback(ctx context.Context, jobID string, update database.JobCallbackUpdate) (*models.EncodingJob, error) {
	args := m.Called(ctx, jobID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EncodingJob), args.Error(1)
}

func (m *mockJobStore) MarkVariantReady(ctx context.Context, videoID, label string, update database.VariantReadyUpdate) error {
	args := m.Called(ctx, videoID, label, update)
	return args.Error(0)
}

func (m *mockJobStore) SetMasterManifests(ctx context.Context, videoID string, manifests models.MasterManifests, defaultFormat string) error {
	args := m.Called(ctx, videoID, manifests, defaultFormat)
	return args.Error(0)
}

func testTracker(t *testing.T, store JobStore) *Tracker {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	assert.NoError(t, err)
	return NewTracker(store, nil, logger)
}

func TestApplyCallback_InvalidJobID(t *testing.T) {
	tracker := testTracker(t, new(mockJobStore))

	_, err := tracker.ApplyCallback(context.Background(), "not-a-uuid", models.CallbackRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestApplyCallback_UnknownJob(t *testing.T) {
	jobID := uuid.New().String()
	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.Anything).
		Return(nil, apperr.NotFound("encoding job not found"))

	tracker := testTracker(t, store)

	_, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestApplyCallback_HeartbeatOnly(t *testing.T) {
	jobID := uuid.New().String()
	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.MatchedBy(func(u database.JobCallbackUpdate) bool {
		return u.Status == nil && u.ProgressPercent == nil && u.WorkerNode == nil &&
			u.Error == nil && u.MasterManifests == nil && !u.HeartbeatAt.IsZero()
	})).Return(&models.EncodingJob{ID: jobID, Status: models.JobStatusProcessing}, nil)

	tracker := testTracker(t, store)

	job, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{})
	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	store.AssertExpectations(t)
}

func TestApplyCallback_ProgressClamped(t *testing.T) {
	jobID := uuid.New().String()
	over := 150.0

	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.MatchedBy(func(u database.JobCallbackUpdate) bool {
		return u.ProgressPercent != nil && *u.ProgressPercent == 100
	})).Return(&models.EncodingJob{ID: jobID, Status: models.JobStatusProcessing, ProgressPercent: 100}, nil)

	tracker := testTracker(t, store)

	_, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{ProgressPercent: &over})
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestApplyCallback_ErrorForcesFailed(t *testing.T) {
	jobID := uuid.New().String()

	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.MatchedBy(func(u database.JobCallbackUpdate) bool {
		return u.Status != nil && *u.Status == models.JobStatusFailed && u.Error != nil
	})).Return(&models.EncodingJob{ID: jobID, Status: models.JobStatusFailed}, nil)

	tracker := testTracker(t, store)

	// The worker claims completed but also reports an error; the
	// error wins.
	_, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{
		Status: models.JobStatusCompleted,
		Error:  &models.JobError{Code: "ENCODE_FAILED", Message: "segfault in encoder"},
	})
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestApplyCallback_CompletedPublishesVariants(t *testing.T) {
	jobID := uuid.New().String()
	videoID := uuid.New().String()

	completed := &models.EncodingJob{
		ID:      jobID,
		VideoID: videoID,
		Status:  models.JobStatusCompleted,
		MasterManifests: models.MasterManifests{
			HLS: &models.ManifestRef{Path: "videos/" + videoID + "/master.m3u8", Version: 1},
		},
	}

	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.Anything).Return(completed, nil)
	store.On("MarkVariantReady", mock.Anything, videoID, "240p-hls", mock.MatchedBy(func(u database.VariantReadyUpdate) bool {
		return u.AvgBitrateKbps == 410 && u.ManifestPath == "videos/x/hls/240p/playlist.m3u8"
	})).Return(nil)
	store.On("MarkVariantReady", mock.Anything, videoID, "240p-dash", mock.MatchedBy(func(u database.VariantReadyUpdate) bool {
		// No avg bitrate reported, falls back to requested bandwidth.
		return u.AvgBitrateKbps == 400
	})).Return(nil)
	store.On("SetMasterManifests", mock.Anything, videoID, completed.MasterManifests, models.FormatHLS).Return(nil)

	tracker := testTracker(t, store)

	_, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{
		Status: models.JobStatusCompleted,
		Variants: []models.CallbackVariant{
			{Label: "240p-hls", ManifestPath: "videos/x/hls/240p/playlist.m3u8", AvgBitrateKbps: 410},
			{Profile: "240p", Container: "dash", BandwidthKbps: 400},
		},
	})
	assert.NoError(t, err)

	// Only the two reported labels are touched; siblings are never
	// written, which is the isolation guarantee.
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "MarkVariantReady", 2)
}

func TestApplyCallback_ProcessingDoesNotPublish(t *testing.T) {
	jobID := uuid.New().String()
	store := new(mockJobStore)
	store.On("ApplyJobCallback", mock.Anything, jobID, mock.Anything).
		Return(&models.EncodingJob{ID: jobID, Status: models.JobStatusProcessing}, nil)

	tracker := testTracker(t, store)

	_, err := tracker.ApplyCallback(context.Background(), jobID, models.CallbackRequest{
		Status:   models.JobStatusProcessing,
		Variants: []models.CallbackVariant{{Label: "240p-hls"}},
	})
	assert.NoError(t, err)
	store.AssertNotCalled(t, "MarkVariantReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusForVideo(t *testing.T) {
	videoID := uuid.New().String()
	store := new(mockJobStore)
	store.On("GetLatestJobByVideoID", mock.Anything, videoID).Return(&models.EncodingJob{
		ID:              "j2",
		Status:          models.JobStatusProcessing,
		ProgressPercent: 55,
		WorkerNode:      "worker-3",
	}, nil)

	tracker := testTracker(t, store)

	status, err := tracker.StatusForVideo(context.Background(), videoID)
	assert.NoError(t, err)
	assert.Equal(t, "j2", status.JobID)
	assert.Equal(t, 55.0, status.ProgressPercent)
	assert.Equal(t, "worker-3", status.WorkerNode)
}
