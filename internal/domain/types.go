package domain

// Theme selects the GUI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// KnownEncoders lists the ffmpeg video encoders the tool knows how to
// drive, including the hardware families that take different quality
// flags.
var KnownEncoders = []string{
	"libx264",
	"libx265",
	"libvpx-vp9",
	"h264_nvenc",
	"hevc_nvenc",
	"h264_amf",
	"hevc_amf",
}

// IsKnownEncoder reports whether name is a supported video encoder.
func IsKnownEncoder(name string) bool {
	for _, enc := range KnownEncoders {
		if enc == name {
			return true
		}
	}
	return false
}

// Settings contains user-selectable runtime configuration. It is loaded
// once at startup and passed read-only into the resolver and runner.
type Settings struct {
	Encoder            string   `json:"encoder"`
	CRF                int      `json:"crf"`
	FontName           string   `json:"fontName"`
	FontSize           int      `json:"fontSize"`
	Theme              Theme    `json:"theme"`
	Language           string   `json:"language"`
	AutoDeleteMKV      bool     `json:"autoDeleteMkv"`
	PreferredLanguages []string `json:"preferredLanguages"`
	OutputDir          string   `json:"outputDir"`
}
