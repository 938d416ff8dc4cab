package playback

import (
	"context"
	"fmt"
	"strings"

	"github.com/videotube/videotube/internal/apperr"
	"github.com/videotube/videotube/internal/metrics"
	"github.com/videotube/videotube/pkg/models"
)

// SegmentLocation is the segment resolution result. SegmentURL is set
// only when the variant is ready; otherwise the encoding state is
// returned so pollers can retry instead of treating "still encoding"
// as failure.
type SegmentLocation struct {
	VideoID         string  `json:"video_id"`
	Label           string  `json:"label"`
	SegmentURL      string  `json:"segment_url,omitempty"`
	VariantStatus   string  `json:"variant_status"`
	JobStatus       string  `json:"job_status,omitempty"`
	ProgressPercent float64 `json:"progress_percent,omitempty"`
}

// findVariant resolves a variant reference: exact label first, then a
// bare profile id, then profile id with a container suffix. The suffix
// forms keep older callers working that predate per-container labels.
func findVariant(variants []models.Variant, ref string) *models.Variant {
	for i := range variants {
		if variants[i].Label == ref {
			return &variants[i]
		}
	}
	for i := range variants {
		if variants[i].Profile == ref {
			return &variants[i]
		}
	}
	for _, suffix := range []string{models.FormatHLS, models.FormatDASH} {
		for i := range variants {
			if variants[i].Label == ref+"-"+suffix {
				return &variants[i]
			}
		}
	}
	return nil
}

// segmentBaseURL picks the effective base for a variant's segments:
// variant override, then video override, then the system default.
func (r *Resolver) segmentBaseURL(video *models.Video, variant *models.Variant) string {
	if variant.Storage != nil && variant.Storage.CDNBaseURL != "" {
		return variant.Storage.CDNBaseURL
	}
	return r.videoBaseURL(video)
}

// ResolveSegment resolves a playable segment location for one variant.
func (r *Resolver) ResolveSegment(ctx context.Context, videoID, variantRef, segmentName string) (*SegmentLocation, error) {
	if strings.TrimSpace(segmentName) == "" {
		metrics.RecordSegmentRequest("invalid")
		return nil, apperr.Validation("segment name is required")
	}

	video, err := r.store.GetPublishedVideo(ctx, videoID)
	if err != nil {
		metrics.RecordSegmentRequest("not_found")
		return nil, err
	}
	if len(video.Variants) == 0 {
		metrics.RecordSegmentRequest("not_found")
		return nil, apperr.NotFound("video has no variants")
	}

	variant := findVariant(video.Variants, variantRef)
	if variant == nil {
		labels := make([]string, 0, len(video.Variants))
		for _, v := range video.Variants {
			labels = append(labels, v.Label)
		}
		metrics.RecordSegmentRequest("not_found")
		return nil, apperr.NotFound("variant %q not found, available: %s", variantRef, strings.Join(labels, ", "))
	}

	if variant.Status != models.VariantStatusReady {
		loc := &SegmentLocation{
			VideoID:       video.ID,
			Label:         variant.Label,
			VariantStatus: variant.Status,
		}
		if job, err := r.store.GetLatestJobByVideoID(ctx, video.ID); err == nil {
			loc.JobStatus = job.Status
			loc.ProgressPercent = job.ProgressPercent
		}
		metrics.RecordSegmentRequest("not_ready")
		return loc, nil
	}

	segmentsPath := variant.SegmentsPath
	if segmentsPath == "" {
		segmentsPath = fmt.Sprintf("videos/%s/%s/%s/", video.ID, variant.Container, variant.Profile)
	}

	metrics.RecordSegmentRequest("ready")
	return &SegmentLocation{
		VideoID:       video.ID,
		Label:         variant.Label,
		VariantStatus: variant.Status,
		SegmentURL:    joinURL(r.segmentBaseURL(video, variant), segmentsPath, segmentName),
	}, nil
}
