package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks the underlying connection
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

const videoColumns = `
	id, owner_id, title, description, source_url, thumbnail, duration, views, is_publish,
	ingestion_origin, cdn_playback_base_url, default_cdn,
	default_format, hls_manifest_path, hls_manifest_version, dash_manifest_path, dash_manifest_version,
	total_watch_time_ms, total_bytes_delivered, total_rebuffer_ms, peak_throughput_kbps,
	last_session_id, last_variant_profile, sessions,
	created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	var hlsPath, dashPath string
	var hlsVersion, dashVersion int

	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.SourceURL, &v.Thumbnail, &v.Duration, &v.Views, &v.IsPublish,
		&v.Storage.IngestionOrigin, &v.Storage.CDNPlaybackBaseURL, &v.Storage.DefaultCDN,
		&v.Playback.DefaultFormat, &hlsPath, &hlsVersion, &dashPath, &dashVersion,
		&v.Analytics.TotalWatchTimeMs, &v.Analytics.TotalBytesDelivered, &v.Analytics.TotalRebufferMs, &v.Analytics.PeakThroughputKbps,
		&v.Analytics.LastSessionID, &v.Analytics.LastVariantProfile, &v.Analytics.Sessions,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if hlsPath != "" {
		v.Playback.Manifests.HLS = &models.ManifestRef{Path: hlsPath, Version: hlsVersion}
	}
	if dashPath != "" {
		v.Playback.Manifests.DASH = &models.ManifestRef{Path: dashPath, Version: dashVersion}
	}

	return &v, nil
}

// CreateVideo inserts a video together with its initial variant rows.
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.Playback.DefaultFormat == "" {
		video.Playback.DefaultFormat = models.FormatHLS
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO videos (
			id, owner_id, title, description, source_url, thumbnail, duration, is_publish,
			ingestion_origin, cdn_playback_base_url, default_cdn, default_format
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		video.ID, video.OwnerID, video.Title, video.Description, video.SourceURL, video.Thumbnail,
		video.Duration, video.IsPublish,
		video.Storage.IngestionOrigin, video.Storage.CDNPlaybackBaseURL, video.Storage.DefaultCDN,
		video.Playback.DefaultFormat,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	variantQuery := `
		INSERT INTO video_variants (
			video_id, label, profile, container, bandwidth_kbps, width, height, codec,
			segment_duration_seconds, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for i := range video.Variants {
		variant := &video.Variants[i]
		variant.VideoID = video.ID
		_, err = tx.Exec(ctx, variantQuery,
			video.ID, variant.Label, variant.Profile, variant.Container, variant.BandwidthKbps,
			variant.Width, variant.Height, variant.Codec, variant.SegmentDuration, variant.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to create variant %s: %w", variant.Label, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit video: %w", err)
	}

	return nil
}

// GetVideo retrieves a video with its variants.
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	video.Variants, err = r.GetVariants(ctx, id)
	if err != nil {
		return nil, err
	}

	return video, nil
}

// GetPublishedVideo retrieves a published video with its variants.
func (r *Repository) GetPublishedVideo(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND is_publish = true`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("video not found or not published")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	video.Variants, err = r.GetVariants(ctx, id)
	if err != nil {
		return nil, err
	}

	return video, nil
}

// GetVideoWithOwner retrieves a video with its owner embedded, the
// join-then-shape read model used by the public endpoints.
func (r *Repository) GetVideoWithOwner(ctx context.Context, id string) (*models.Video, error) {
	video, err := r.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	ownerQuery := `SELECT id, username, full_name, avatar FROM users WHERE id = $1`
	var owner models.Owner
	err = r.db.Pool.QueryRow(ctx, ownerQuery, video.OwnerID).Scan(
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar,
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get video owner: %w", err)
	}
	if err == nil {
		video.Owner = &owner
	}

	return video, nil
}

// ListVideosOptions narrows and orders a video listing.
type ListVideosOptions struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortType string
	Page     int
	Limit    int
}

// sortColumn whitelists user-supplied sort keys.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "views", "duration", "title", "created_at":
		return "v." + sortBy
	default:
		return "v.created_at"
	}
}

// ListVideos retrieves published videos with owners embedded.
func (r *Repository) ListVideos(ctx context.Context, opts ListVideosOptions) ([]*models.Video, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}

	direction := "DESC"
	if opts.SortType == "asc" {
		direction = "ASC"
	}

	query := `
		SELECT v.id, v.owner_id, v.title, v.description, v.source_url, v.thumbnail, v.duration, v.views, v.is_publish,
		       v.ingestion_origin, v.cdn_playback_base_url, v.default_cdn,
		       v.default_format, v.hls_manifest_path, v.hls_manifest_version, v.dash_manifest_path, v.dash_manifest_version,
		       v.total_watch_time_ms, v.total_bytes_delivered, v.total_rebuffer_ms, v.peak_throughput_kbps,
		       v.last_session_id, v.last_variant_profile, v.sessions,
		       v.created_at, v.updated_at,
		       u.id, u.username, u.full_name, u.avatar
		FROM videos v
		LEFT JOIN users u ON u.id = v.owner_id
		WHERE v.is_publish = true
		  AND ($1 = '' OR v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR v.owner_id::text = $2)
		ORDER BY ` + sortColumn(opts.SortBy) + ` ` + direction + `
		LIMIT $3 OFFSET $4
	`

	offset := (opts.Page - 1) * opts.Limit
	rows, err := r.db.Pool.Query(ctx, query, opts.Query, opts.OwnerID, opts.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]*models.Video, 0)
	for rows.Next() {
		var v models.Video
		var hlsPath, dashPath string
		var hlsVersion, dashVersion int
		var ownerID, ownerUsername, ownerFullName, ownerAvatar *string

		err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.SourceURL, &v.Thumbnail, &v.Duration, &v.Views, &v.IsPublish,
			&v.Storage.IngestionOrigin, &v.Storage.CDNPlaybackBaseURL, &v.Storage.DefaultCDN,
			&v.Playback.DefaultFormat, &hlsPath, &hlsVersion, &dashPath, &dashVersion,
			&v.Analytics.TotalWatchTimeMs, &v.Analytics.TotalBytesDelivered, &v.Analytics.TotalRebufferMs, &v.Analytics.PeakThroughputKbps,
			&v.Analytics.LastSessionID, &v.Analytics.LastVariantProfile, &v.Analytics.Sessions,
			&v.CreatedAt, &v.UpdatedAt,
			&ownerID, &ownerUsername, &ownerFullName, &ownerAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}

		if hlsPath != "" {
			v.Playback.Manifests.HLS = &models.ManifestRef{Path: hlsPath, Version: hlsVersion}
		}
		if dashPath != "" {
			v.Playback.Manifests.DASH = &models.ManifestRef{Path: dashPath, Version: dashVersion}
		}
		if ownerID != nil {
			v.Owner = &models.Owner{ID: *ownerID, Username: deref(ownerUsername), FullName: deref(ownerFullName), Avatar: deref(ownerAvatar)}
		}

		videos = append(videos, &v)
	}

	return videos, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IncrementViews bumps the view counter without reading the row.
func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// VideoMetaUpdate carries the owner-editable metadata fields.
type VideoMetaUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// UpdateVideoMeta updates owner-editable fields, scoped to the owner.
func (r *Repository) UpdateVideoMeta(ctx context.Context, id, ownerID string, update VideoMetaUpdate) (*models.Video, error) {
	query := `
		UPDATE videos
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    thumbnail = COALESCE($5, thumbnail),
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, ownerID, update.Title, update.Description, update.Thumbnail)
	if err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("video not found or not authorized")
	}

	return r.GetVideo(ctx, id)
}

// DeleteVideo removes a video and its dependents, scoped to the owner.
func (r *Repository) DeleteVideo(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("video not found or not authorized")
	}
	return nil
}

// TogglePublish flips the publish flag, scoped to the owner, and
// returns the new value.
func (r *Repository) TogglePublish(ctx context.Context, id, ownerID string) (bool, error) {
	var isPublish bool
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE videos SET is_publish = NOT is_publish, updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING is_publish`,
		id, ownerID,
	).Scan(&isPublish)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperr.NotFound("video not found or not authorized")
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle publish: %w", err)
	}
	return isPublish, nil
}

// GetVariants returns all variant rows for a video in label order.
func (r *Repository) GetVariants(ctx context.Context, videoID string) ([]models.Variant, error) {
	query := `
		SELECT video_id, label, profile, container, bandwidth_kbps, width, height, codec,
		       segment_duration_seconds, status, manifest_path, segments_path, storage,
		       avg_bitrate_kbps, switch_count, last_published_at
		FROM video_variants
		WHERE video_id = $1
		ORDER BY label
	`

	rows, err := r.db.Pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	defer rows.Close()

	variants := make([]models.Variant, 0)
	for rows.Next() {
		var v models.Variant
		var storageJSON []byte
		err := rows.Scan(
			&v.VideoID, &v.Label, &v.Profile, &v.Container, &v.BandwidthKbps, &v.Width, &v.Height, &v.Codec,
			&v.SegmentDuration, &v.Status, &v.ManifestPath, &v.SegmentsPath, &storageJSON,
			&v.AvgBitrateKbps, &v.SwitchCount, &v.LastPublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if len(storageJSON) > 0 {
			var vs models.VariantStorage
			if err := json.Unmarshal(storageJSON, &vs); err == nil {
				v.Storage = &vs
			}
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

// VariantReadyUpdate is the per-variant completion payload applied by
// worker callbacks.
type VariantReadyUpdate struct {
	ManifestPath   string
	SegmentsPath   string
	Storage        *models.VariantStorage
	AvgBitrateKbps int
	PublishedAt    time.Time
}

// MarkVariantReady updates exactly one labeled variant row, scoped to
// the owning video. Siblings are untouched, so concurrent callbacks
// for different variants of the same video never clobber each other.
// Re-applying an identical update is a no-op in effect.
func (r *Repository) MarkVariantReady(ctx context.Context, videoID, label string, update VariantReadyUpdate) error {
	var storageJSON []byte
	if update.Storage != nil {
		data, err := json.Marshal(update.Storage)
		if err != nil {
			return fmt.Errorf("failed to marshal variant storage: %w", err)
		}
		storageJSON = data
	}

	query := `
		UPDATE video_variants
		SET status = $3,
		    manifest_path = $4,
		    segments_path = $5,
		    storage = COALESCE($6, storage),
		    avg_bitrate_kbps = $7,
		    last_published_at = $8
		WHERE video_id = $1 AND label = $2
	`

	_, err := r.db.Pool.Exec(ctx, query,
		videoID, label, models.VariantStatusReady,
		update.ManifestPath, update.SegmentsPath, storageJSON,
		update.AvgBitrateKbps, update.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark variant ready: %w", err)
	}
	return nil
}

// SetMasterManifests stores the published master manifest paths and
// the derived default format on the video.
func (r *Repository) SetMasterManifests(ctx context.Context, videoID string, manifests models.MasterManifests, defaultFormat string) error {
	var hlsPath, dashPath string
	var hlsVersion, dashVersion int
	if manifests.HLS != nil {
		hlsPath, hlsVersion = manifests.HLS.Path, manifests.HLS.Version
	}
	if manifests.DASH != nil {
		dashPath, dashVersion = manifests.DASH.Path, manifests.DASH.Version
	}

	query := `
		UPDATE videos
		SET hls_manifest_path = $2, hls_manifest_version = $3,
		    dash_manifest_path = $4, dash_manifest_version = $5,
		    default_format = $6,
		    updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, videoID, hlsPath, hlsVersion, dashPath, dashVersion, defaultFormat)
	if err != nil {
		return fmt.Errorf("failed to set master manifests: %w", err)
	}
	return nil
}
