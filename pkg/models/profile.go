package models

// EncodeProfile is one configured rendition target, independent of
// container packaging.
type EncodeProfile struct {
	ID                  string   `json:"id" mapstructure:"id"`
	Width               int      `json:"width" mapstructure:"width"`
	Height              int      `json:"height" mapstructure:"height"`
	BitrateKbps         int      `json:"bitrate_kbps" mapstructure:"bitrateKbps"`
	Codec               string   `json:"codec" mapstructure:"codec"`
	Containers          []string `json:"containers" mapstructure:"containers"`
	HLSSegmentDuration  int      `json:"hls_segment_duration" mapstructure:"hlsSegmentDuration"`
	DASHSegmentDuration int      `json:"dash_segment_duration" mapstructure:"dashSegmentDuration"`
}

// SegmentDurationFor returns the segment duration for a container.
func (p EncodeProfile) SegmentDurationFor(container string) int {
	if container == FormatDASH {
		return p.DASHSegmentDuration
	}
	return p.HLSSegmentDuration
}

// DefaultEncodeProfiles is the stock rendition ladder used when the
// config file does not override it.
func DefaultEncodeProfiles() []EncodeProfile {
	return []EncodeProfile{
		{ID: "240p", Width: 426, Height: 240, BitrateKbps: 400, Codec: "h264", Containers: []string{FormatHLS, FormatDASH}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
		{ID: "360p", Width: 640, Height: 360, BitrateKbps: 800, Codec: "h264", Containers: []string{FormatHLS, FormatDASH}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
		{ID: "480p", Width: 854, Height: 480, BitrateKbps: 1400, Codec: "h264", Containers: []string{FormatHLS, FormatDASH}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
		{ID: "720p", Width: 1280, Height: 720, BitrateKbps: 2800, Codec: "h264", Containers: []string{FormatHLS, FormatDASH}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
		{ID: "1080p", Width: 1920, Height: 1080, BitrateKbps: 5200, Codec: "h264", Containers: []string{FormatHLS, FormatDASH}, HLSSegmentDuration: 6, DASHSegmentDuration: 4},
	}
}
