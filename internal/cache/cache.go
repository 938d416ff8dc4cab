package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videotube/videotube/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Video Cache Operations

// SetVideo caches a video read model
func (c *Cache) SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	key := fmt.Sprintf("video:%s", video.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetVideo retrieves a video read model from cache
func (c *Cache) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	key := fmt.Sprintf("video:%s", videoID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get video from cache: %w", err)
	}

	var video models.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}

	return &video, nil
}

// DeleteVideo removes a video from cache. Callbacks and owner
// mutations call this so playback reads converge quickly.
func (c *Cache) DeleteVideo(ctx context.Context, videoID string) error {
	key := fmt.Sprintf("video:%s", videoID)
	return c.client.Del(ctx, key).Err()
}

// Job Progress Cache Operations

// SetJobProgress caches job status and progress for quick polling
func (c *Cache) SetJobProgress(ctx context.Context, jobID, status string, progress float64, ttl time.Duration) error {
	key := fmt.Sprintf("job:progress:%s", jobID)
	data, err := json.Marshal(map[string]interface{}{
		"status":           status,
		"progress_percent": progress,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job progress: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJobProgress retrieves cached job status and progress
func (c *Cache) GetJobProgress(ctx context.Context, jobID string) (string, float64, error) {
	key := fmt.Sprintf("job:progress:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return "", 0, nil // Cache miss
		}
		return "", 0, fmt.Errorf("failed to get job progress from cache: %w", err)
	}

	var payload struct {
		Status          string  `json:"status"`
		ProgressPercent float64 `json:"progress_percent"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal job progress: %w", err)
	}

	return payload.Status, payload.ProgressPercent, nil
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	// Increment counter
	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	// Check if limit exceeded
	return count <= limit, nil
}
