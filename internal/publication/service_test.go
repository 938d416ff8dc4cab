package publication

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/pkg/models"
)

type mockVideoStore struct {
	mock.Mock
}

func (m *mockVideoStore) CreateVideo(ctx context.Context, video *models.Video) error {
	args := m.Called(ctx, video)
	return args.Error(0)
}

func (m *mockVideoStore) CreateJob(ctx context.Context, job *models.EncodingJob) error {
	args := m.Called(ctx, job)
	job.ID = "job-1"
	return args.Error(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.Error(0)
}

func (m *mockObjectStore) Delete(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) PublishJob(ctx context.Context, job *models.EncodingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

var testProfiles = []models.EncodeProfile{
	{ID: "240p", Width: 426, Height: 240, BitrateKbps: 400, Codec: "h264", Containers: []string{"hls", "dash"}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
	{ID: "360p", Width: 640, Height: 360, BitrateKbps: 800, Codec: "h264", Containers: []string{"hls", "dash"}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
}

func testRequest() Request {
	return Request{
		OwnerID:     "owner-1",
		Title:       "My Video",
		Description: "a description",
		Source: MediaUpload{
			Reader:      strings.NewReader("video-bytes"),
			Size:        11,
			Filename:    "clip.mp4",
			ContentType: "video/mp4",
		},
		Thumbnail: MediaUpload{
			Reader:      strings.NewReader("thumb-bytes"),
			Size:        11,
			Filename:    "thumb.jpg",
			ContentType: "image/jpeg",
		},
	}
}

func testService(t *testing.T, store VideoStore, objects ObjectStore, q JobQueue) *Service {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	assert.NoError(t, err)
	return NewService(store, objects, q, testProfiles, "http://cdn.local", "minio", logger)
}

func TestPublish_Success(t *testing.T) {
	store := new(mockVideoStore)
	objects := new(mockObjectStore)
	q := new(mockQueue)

	objects.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("CreateVideo", mock.Anything, mock.Anything).Return(nil)
	store.On("CreateJob", mock.Anything, mock.Anything).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	svc := testService(t, store, objects, q)

	result, err := svc.Publish(context.Background(), testRequest())
	assert.NoError(t, err)
	assert.Equal(t, "job-1", result.JobID)

	video := result.Video
	assert.True(t, video.IsPublish)
	assert.Equal(t, "owner-1", video.OwnerID)
	assert.Equal(t, "http://cdn.local", video.Storage.CDNPlaybackBaseURL)

	// Two profiles with both containers give four pending variants.
	assert.Len(t, video.Variants, 4)
	for _, v := range video.Variants {
		assert.Equal(t, models.VariantStatusPending, v.Status)
	}

	q.AssertNumberOfCalls(t, "PublishJob", 1)
	store.AssertExpectations(t)
}

func TestPublish_JobSnapshotMatchesVariants(t *testing.T) {
	store := new(mockVideoStore)
	objects := new(mockObjectStore)
	q := new(mockQueue)

	objects.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("CreateVideo", mock.Anything, mock.Anything).Return(nil)
	store.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *models.EncodingJob) bool {
		return len(job.VariantsRequested) == 4 &&
			job.Status == models.JobStatusQueued &&
			job.Priority == models.JobPriorityNormal
	})).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	svc := testService(t, store, objects, q)

	_, err := svc.Publish(context.Background(), testRequest())
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPublish_MissingTitle(t *testing.T) {
	svc := testService(t, new(mockVideoStore), new(mockObjectStore), new(mockQueue))

	req := testRequest()
	req.Title = "   "

	_, err := svc.Publish(context.Background(), req)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestPublish_SourceUploadFails(t *testing.T) {
	objects := new(mockObjectStore)
	objects.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.Contains(key, "/original/")
	}), mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	svc := testService(t, new(mockVideoStore), objects, new(mockQueue))

	_, err := svc.Publish(context.Background(), testRequest())
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestPublish_ThumbnailFailureCleansUpSource(t *testing.T) {
	objects := new(mockObjectStore)
	objects.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.Contains(key, "/original/")
	}), mock.Anything, mock.Anything, mock.Anything).Return(nil)
	objects.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.Contains(key, "/thumbnail/")
	}), mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	objects.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.Contains(key, "/original/")
	})).Return(nil)

	svc := testService(t, new(mockVideoStore), objects, new(mockQueue))

	_, err := svc.Publish(context.Background(), testRequest())
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	objects.AssertExpectations(t)
}

func TestPublish_QueueFailureDoesNotFailRequest(t *testing.T) {
	store := new(mockVideoStore)
	objects := new(mockObjectStore)
	q := new(mockQueue)

	objects.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("CreateVideo", mock.Anything, mock.Anything).Return(nil)
	store.On("CreateJob", mock.Anything, mock.Anything).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := testService(t, store, objects, q)

	// The job row exists; dispatch recovery is the monitor's concern.
	result, err := svc.Publish(context.Background(), testRequest())
	assert.NoError(t, err)
	assert.NotNil(t, result)
}
