package domain

// InputSpec is one user-supplied path, tagged as a file or directory
// reference. It is consumed immediately by the resolver and never
// persisted.
type InputSpec struct {
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// SubtitleTrack describes one subtitle stream. Index is the
// subtitle-relative stream index as used by ffmpeg's 0:s:N selector and
// the subtitles filter's si parameter.
type SubtitleTrack struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec"`
	Language string `json:"language"`
	Title    string `json:"title"`
	Default  bool   `json:"default"`
	Forced   bool   `json:"forced"`
}

// AudioTrack describes one audio stream. Index is the audio-relative
// stream index as used by ffmpeg's 0:a:N selector.
type AudioTrack struct {
	Index         int    `json:"index"`
	Codec         string `json:"codec"`
	Language      string `json:"language"`
	Title         string `json:"title"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channelLayout"`
	Default       bool   `json:"default"`
}

// MediaFile is a resolved MKV path with its probed track descriptors.
// Empty track lists mean the probe failed or the file carries no streams
// of that kind; conversion then degrades to no burn-in / default audio.
type MediaFile struct {
	Path      string          `json:"path"`
	Size      int64           `json:"size"`
	Duration  float64         `json:"duration"`
	Subtitles []SubtitleTrack `json:"subtitles"`
	Audio     []AudioTrack    `json:"audio"`
}

// HasSubtitles reports whether any subtitle track was discovered.
func (m MediaFile) HasSubtitles() bool {
	return len(m.Subtitles) > 0
}
