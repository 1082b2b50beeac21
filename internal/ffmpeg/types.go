package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Progress represents ffmpeg progress data parsed from -progress output
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	OutTime time.Duration
	Speed   string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures a single ffmpeg invocation
type RunOptions struct {
	Args            []string
	Timeout         time.Duration // 0 = no wall-clock bound
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// CutOptions defines clip extraction parameters
type CutOptions struct {
	Start   time.Duration
	End     time.Duration
	Output  string
	Timeout time.Duration
}

// Default encoding settings for the neutral cut re-encode
const (
	DefaultCRF          = 23
	DefaultPreset       = "medium"
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "160k"
)
