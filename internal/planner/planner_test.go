package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/videotube/videotube/pkg/models"
)

func TestPlan_TwoContainersPerProfile(t *testing.T) {
	profiles := []models.EncodeProfile{
		{ID: "240p", Width: 426, Height: 240, BitrateKbps: 400, Codec: "h264", Containers: []string{"hls", "dash"}},
		{ID: "360p", Width: 640, Height: 360, BitrateKbps: 800, Codec: "h264", Containers: []string{"hls", "dash"}},
		{ID: "720p", Width: 1280, Height: 720, BitrateKbps: 2800, Codec: "h264", Containers: []string{"hls", "dash"}},
	}

	variants := Plan(profiles)

	assert.Len(t, variants, 6)
	for _, v := range variants {
		assert.Equal(t, models.VariantStatusPending, v.Status)
		assert.Equal(t, v.Profile+"-"+v.Container, v.Label)
	}
}

func TestPlan_LabelsUnique(t *testing.T) {
	variants := Plan(models.DefaultEncodeProfiles())

	seen := make(map[string]bool)
	for _, v := range variants {
		assert.False(t, seen[v.Label], "duplicate label %s", v.Label)
		seen[v.Label] = true
	}
}

func TestPlan_DefaultsToHLS(t *testing.T) {
	variants := Plan([]models.EncodeProfile{
		{ID: "480p", BitrateKbps: 1400, Codec: "h264"},
	})

	assert.Len(t, variants, 1)
	assert.Equal(t, models.FormatHLS, variants[0].Container)
	assert.Equal(t, "480p-hls", variants[0].Label)
}

func TestPlan_EmptyProfiles(t *testing.T) {
	assert.Empty(t, Plan(nil))
}

func TestPlan_SegmentDurationPerContainer(t *testing.T) {
	variants := Plan([]models.EncodeProfile{
		{
			ID: "720p", BitrateKbps: 2800, Codec: "h264",
			Containers:          []string{"hls", "dash"},
			HLSSegmentDuration:  6,
			DASHSegmentDuration: 4,
		},
	})

	byLabel := make(map[string]models.Variant)
	for _, v := range variants {
		byLabel[v.Label] = v
	}

	assert.Equal(t, 6, byLabel["720p-hls"].SegmentDuration)
	assert.Equal(t, 4, byLabel["720p-dash"].SegmentDuration)
}

func TestSpecs_Snapshot(t *testing.T) {
	variants := Plan([]models.EncodeProfile{
		{ID: "1080p", Width: 1920, Height: 1080, BitrateKbps: 5000, Codec: "h264", Containers: []string{"dash"}},
	})

	specs := Specs(variants)

	assert.Len(t, specs, 1)
	assert.Equal(t, "1080p", specs[0].Profile)
	assert.Equal(t, "dash", specs[0].Container)
	assert.Equal(t, 5000, specs[0].BandwidthKbps)
}
