package export

import "sort"

// Preset is a named export configuration. Recode=false means the cut
// clip is copied verbatim; otherwise Params are passed to the encoder
// between input and output.
type Preset struct {
	Name        string
	Description string
	Extension   string
	Recode      bool
	Params      []string
}

// DefaultPresetName is the fallback for unknown preset names.
const DefaultPresetName = "original"

var presets = map[string]Preset{
	"original": {
		Name:        "original",
		Description: "Cut clip as-is (MP4), no re-encoding",
		Extension:   ".mp4",
		Recode:      false,
	},
	"reels": {
		Name:        "reels",
		Description: "Instagram Reels / TikTok / Shorts, vertical 9:16 1080x1920",
		Extension:   ".mp4",
		Recode:      true,
		Params: []string{
			"-vf", "scale='min(1080,iw)':'min(1920,ih)':force_original_aspect_ratio=decrease," +
				"pad=1080:1920:(1080-iw*min(1080/iw\\,1920/ih))/2:(1920-ih*min(1080/iw\\,1920/ih))/2,setsar=1",
			"-c:v", "libx264", "-preset", "medium", "-crf", "22",
			"-c:a", "aac", "-b:a", "160k",
			"-movflags", "+faststart",
		},
	},
	"shorts": {
		Name:        "shorts",
		Description: "YouTube horizontal 16:9 1920x1080",
		Extension:   ".mp4",
		Recode:      true,
		Params: []string{
			"-vf", "scale=1920:1080,setsar=1",
			"-c:v", "libx264", "-preset", "medium", "-crf", "22",
			"-c:a", "aac", "-b:a", "160k",
			"-movflags", "+faststart",
		},
	},
	"gif": {
		Name:        "gif",
		Description: "Animated GIF, low quality, small size",
		Extension:   ".gif",
		Recode:      true,
		Params: []string{
			"-vf", "fps=10,scale=480:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		},
	},
}

// LookupPreset resolves a preset by name, reporting whether it was known.
// Unknown names fall back to the default copy preset.
func LookupPreset(name string) (Preset, bool) {
	if p, ok := presets[name]; ok {
		return p, true
	}
	return presets[DefaultPresetName], false
}

// PresetNames lists available preset names in stable order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
