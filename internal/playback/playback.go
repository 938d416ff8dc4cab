// Package playback is the read side of the pipeline: manifest
// resolution and segment URL issuance. Both degrade gracefully while
// encoding is still in flight so players can start the moment any
// rendition is ready.
package playback

import (
	"context"
	"strings"

	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/pkg/models"
)

// VideoStore is the read surface the resolver needs.
type VideoStore interface {
	GetPublishedVideo(ctx context.Context, id string) (*models.Video, error)
	GetLatestJobByVideoID(ctx context.Context, videoID string) (*models.EncodingJob, error)
}

// Resolver resolves manifests and segment locations.
type Resolver struct {
	store   VideoStore
	baseURL string
	log     *logging.Logger
}

// NewResolver creates a playback resolver. baseURL is the system-wide
// CDN playback base used when neither the video nor the variant
// carries an override.
func NewResolver(store VideoStore, baseURL string, log *logging.Logger) *Resolver {
	return &Resolver{store: store, baseURL: baseURL, log: log}
}

// videoBaseURL picks the per-video override, else the system default.
func (r *Resolver) videoBaseURL(video *models.Video) string {
	if video.Storage.CDNPlaybackBaseURL != "" {
		return video.Storage.CDNPlaybackBaseURL
	}
	return r.baseURL
}

// joinURL joins a base URL with path parts, collapsing duplicate
// separators at the seams.
func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	return out
}
