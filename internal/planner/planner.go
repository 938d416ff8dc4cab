// Package planner derives the initial rendition set for a new video
// from the configured encode profile ladder.
package planner

import (
	"fmt"

	"github.com/videotube/videotube/pkg/models"
)

// Plan produces one pending variant per (profile, container) pair.
// Profiles without an explicit container list default to HLS. An
// empty profile list yields no variants.
func Plan(profiles []models.EncodeProfile) []models.Variant {
	variants := make([]models.Variant, 0, len(profiles)*2)

	for _, profile := range profiles {
		containers := profile.Containers
		if len(containers) == 0 {
			containers = []string{models.FormatHLS}
		}

		for _, container := range containers {
			variants = append(variants, models.Variant{
				Profile:         profile.ID,
				Label:           Label(profile.ID, container),
				Container:       container,
				BandwidthKbps:   profile.BitrateKbps,
				Width:           profile.Width,
				Height:          profile.Height,
				Codec:           profile.Codec,
				SegmentDuration: profile.SegmentDurationFor(container),
				Status:          models.VariantStatusPending,
			})
		}
	}

	return variants
}

// Label builds the unique per-video variant label.
func Label(profileID, container string) string {
	return fmt.Sprintf("%s-%s", profileID, container)
}

// Specs snapshots a variant set into the immutable form carried by an
// encoding job.
func Specs(variants []models.Variant) []models.VariantSpec {
	specs := make([]models.VariantSpec, 0, len(variants))
	for _, v := range variants {
		specs = append(specs, models.VariantSpec{
			Profile:         v.Profile,
			Container:       v.Container,
			BandwidthKbps:   v.BandwidthKbps,
			Width:           v.Width,
			Height:          v.Height,
			Codec:           v.Codec,
			SegmentDuration: v.SegmentDuration,
		})
	}
	return specs
}
