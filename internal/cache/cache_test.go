package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/videotube/videotube/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_VideoOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	video := &models.Video{
		ID:        "test-video-1",
		Title:     "test clip",
		IsPublish: true,
		Variants: []models.Variant{
			{Label: "240p-hls", Profile: "240p", Container: "hls", Status: models.VariantStatusReady},
		},
	}

	if err := cache.SetVideo(ctx, video, 5*time.Minute); err != nil {
		t.Fatalf("SetVideo failed: %v", err)
	}

	retrieved, err := cache.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Retrieved video should not be nil")
	}
	if retrieved.ID != video.ID {
		t.Errorf("Expected ID %s, got %s", video.ID, retrieved.ID)
	}
	if len(retrieved.Variants) != 1 || retrieved.Variants[0].Label != "240p-hls" {
		t.Errorf("Variants did not survive the round trip: %+v", retrieved.Variants)
	}

	// Cache miss returns nil, nil
	missing, err := cache.GetVideo(ctx, "no-such-video")
	if err != nil {
		t.Fatalf("GetVideo miss failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil on cache miss")
	}

	if err := cache.DeleteVideo(ctx, video.ID); err != nil {
		t.Fatalf("DeleteVideo failed: %v", err)
	}
	deleted, err := cache.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo after delete failed: %v", err)
	}
	if deleted != nil {
		t.Error("Expected nil after delete")
	}
}

func TestCache_JobProgress(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	if err := cache.SetJobProgress(ctx, "job-1", models.JobStatusProcessing, 42.5, time.Minute); err != nil {
		t.Fatalf("SetJobProgress failed: %v", err)
	}

	status, progress, err := cache.GetJobProgress(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobProgress failed: %v", err)
	}
	if status != models.JobStatusProcessing {
		t.Errorf("Expected status %s, got %s", models.JobStatusProcessing, status)
	}
	if progress != 42.5 {
		t.Errorf("Expected progress 42.5, got %f", progress)
	}

	// Miss returns zero values without error
	status, progress, err = cache.GetJobProgress(ctx, "no-such-job")
	if err != nil {
		t.Fatalf("GetJobProgress miss failed: %v", err)
	}
	if status != "" || progress != 0 {
		t.Errorf("Expected zero values on miss, got %s/%f", status, progress)
	}
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := cache.CheckRateLimit(ctx, "client-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := cache.CheckRateLimit(ctx, "client-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Fourth request should be rejected")
	}
}
