package playback

import (
	"context"
	"fmt"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/pkg/models"
)

// Manifest resolution outcomes.
const (
	EncodingStatusCompleted  = "completed"
	EncodingStatusReady      = "ready"
	EncodingStatusInProgress = "in_progress"
)

// ManifestView is the manifest resolution result. ManifestURL is empty
// while no rendition for the format is playable; Job then carries the
// in-flight encoding state instead.
type ManifestView struct {
	VideoID         string           `json:"video_id"`
	Format          string           `json:"format"`
	ManifestURL     string           `json:"manifest_url,omitempty"`
	ManifestVersion int              `json:"manifest_version,omitempty"`
	EncodingStatus  string           `json:"encoding_status"`
	Warning         string           `json:"warning,omitempty"`
	Job             *ManifestJobInfo `json:"job,omitempty"`
	Variants        []models.Variant `json:"variants,omitempty"`
}

// ManifestJobInfo is the encoding-state subset surfaced while no
// manifest is available yet.
type ManifestJobInfo struct {
	Status          string  `json:"status"`
	ProgressPercent float64 `json:"progress_percent"`
}

// manifestExt maps a format to its master manifest filename extension.
func manifestExt(format string) string {
	if format == models.FormatDASH {
		return "mpd"
	}
	return "m3u8"
}

// ResolveManifest resolves the playback manifest for one format.
// First match wins:
//  1. published master manifest for the format
//  2. synthesized default path when a variant for the format is ready
//  3. in-progress view from the latest encoding job
//  4. no variants at all is a conflict, encoding was never initiated
func (r *Resolver) ResolveManifest(ctx context.Context, videoID, format string) (*ManifestView, error) {
	if !models.ValidFormat(format) {
		metrics.RecordManifestRequest(format, "invalid")
		return nil, apperr.Validation("format must be hls or dash")
	}

	video, err := r.store.GetPublishedVideo(ctx, videoID)
	if err != nil {
		metrics.RecordManifestRequest(format, "not_found")
		return nil, err
	}

	if ref := video.Playback.Manifests.ForFormat(format); ref != nil && ref.Path != "" {
		metrics.RecordManifestRequest(format, "completed")
		return &ManifestView{
			VideoID:         video.ID,
			Format:          format,
			ManifestURL:     joinURL(r.videoBaseURL(video), ref.Path),
			ManifestVersion: ref.Version,
			EncodingStatus:  EncodingStatusCompleted,
		}, nil
	}

	for _, v := range video.Variants {
		if v.Container == format && v.Status == models.VariantStatusReady {
			path := fmt.Sprintf("videos/%s/master.%s", video.ID, manifestExt(format))
			metrics.RecordManifestRequest(format, "synthesized")
			return &ManifestView{
				VideoID:        video.ID,
				Format:         format,
				ManifestURL:    joinURL(r.videoBaseURL(video), path),
				EncodingStatus: EncodingStatusReady,
				Warning:        "master manifest path not published yet, using default location",
			}, nil
		}
	}

	if len(video.Variants) == 0 {
		metrics.RecordManifestRequest(format, "conflict")
		return nil, apperr.Conflict("encoding has not been initiated for this video")
	}

	view := &ManifestView{
		VideoID:        video.ID,
		Format:         format,
		EncodingStatus: EncodingStatusInProgress,
		Variants:       video.Variants,
	}

	job, err := r.store.GetLatestJobByVideoID(ctx, video.ID)
	if err == nil {
		view.Job = &ManifestJobInfo{Status: job.Status, ProgressPercent: job.ProgressPercent}
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	metrics.RecordManifestRequest(format, "in_progress")
	return view, nil
}
