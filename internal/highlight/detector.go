package highlight

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/pkg/util"
	"github.com/rs/zerolog"
)

// EventKind distinguishes detector worker events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
	EventError
)

// Event is a detector worker notification. Finished and Error are
// terminal; exactly one of them ends every run. Cancellation is not an
// error: it terminates with Finished carrying whatever was collected.
type Event struct {
	Kind       EventKind
	Percent    int
	Message    string
	Highlights []Highlight
	Err        string
}

// VideoTool is the slice of the encoder layer the detector needs.
type VideoTool interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	DetectScenes(ctx context.Context, input string, threshold float64, onProgress ffmpeg.ProgressFunc) ([]time.Duration, error)
}

// Config holds detection tunables.
type Config struct {
	// Sensitivity on the 0-100 scale; mapped onto ffmpeg's 0-1 scene score.
	Threshold float64
	// Minimum detected-scene length.
	MinSceneLen time.Duration
	// Scenes shorter than this never become highlights.
	MinHighlight time.Duration
}

// DefaultConfig mirrors the settings-dialog defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:    27.0,
		MinSceneLen:  2 * time.Second,
		MinHighlight: 3 * time.Second,
	}
}

// Detector scans a video for scene-change highlights on a worker
// goroutine, reporting through an event channel.
type Detector struct {
	logger zerolog.Logger
	video  VideoTool
	cfg    Config
}

func NewDetector(logger zerolog.Logger, video VideoTool, cfg Config) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "detector").Logger(),
		video:  video,
		cfg:    cfg,
	}
}

// Run launches the analysis worker. The returned channel delivers
// progress events in increasing-percent order followed by exactly one
// terminal event, then closes. Each Run re-scans the whole file.
func (d *Detector) Run(ctx context.Context, videoPath string) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)
		d.analyze(ctx, videoPath, events)
	}()
	return events
}

func (d *Detector) analyze(ctx context.Context, videoPath string, events chan<- Event) {
	d.logger.Info().Str("video", videoPath).Msg("starting analysis")

	if !util.FileExists(videoPath) {
		d.fail(events, fmt.Sprintf("video file not found: %s", videoPath))
		return
	}

	events <- Event{Kind: EventProgress, Percent: 0, Message: "probing video"}

	info, err := d.video.ProbeVideo(ctx, videoPath)
	if err != nil {
		d.fail(events, fmt.Sprintf("probe failed: %v", err))
		return
	}
	if info.FPS <= 0 {
		d.fail(events, fmt.Sprintf("invalid frame rate (%.2f) for %s", info.FPS, videoPath))
		return
	}
	if ctx.Err() != nil {
		d.cancelled(events, nil)
		return
	}

	d.logger.Info().
		Float64("fps", info.FPS).
		Dur("duration", info.Duration).
		Msg("video metadata extracted")

	events <- Event{Kind: EventProgress, Percent: 5, Message: "detecting scenes"}

	lastPercent := 5
	onProgress := func(p *ffmpeg.Progress) {
		if info.Duration <= 0 {
			return
		}
		percent := 5 + int(float64(p.OutTime)/float64(info.Duration)*85)
		if percent > 90 {
			percent = 90
		}
		// Throttle: only whole-percent advances produce events.
		if percent > lastPercent {
			lastPercent = percent
			events <- Event{
				Kind:    EventProgress,
				Percent: percent,
				Message: fmt.Sprintf("scanned %s of %s", util.FormatDuration(p.OutTime), util.FormatDuration(info.Duration)),
			}
		}
	}

	boundaries, err := d.video.DetectScenes(ctx, videoPath, d.cfg.Threshold/100.0, onProgress)
	if err != nil {
		if ctx.Err() != nil {
			d.cancelled(events, nil)
			return
		}
		d.fail(events, fmt.Sprintf("scene detection failed: %v", err))
		return
	}
	if ctx.Err() != nil {
		d.cancelled(events, nil)
		return
	}

	events <- Event{Kind: EventProgress, Percent: 95, Message: "filtering highlights"}

	scenes := pairBoundaries(boundaries, info.Duration, d.cfg.MinSceneLen)
	d.logger.Info().
		Int("boundaries", len(boundaries)).
		Int("scenes", len(scenes)).
		Msg("scene list assembled")

	var highlights []Highlight
	for i, s := range scenes {
		if ctx.Err() != nil {
			d.cancelled(events, highlights)
			return
		}
		dur := s.end - s.start
		if dur < d.cfg.MinHighlight {
			d.logger.Debug().
				Int("scene", i+1).
				Dur("duration", dur).
				Msg("scene below minimum highlight duration, skipped")
			continue
		}
		highlights = append(highlights, Highlight{
			Description: fmt.Sprintf("Highlight #%d (Scene %d)", len(highlights)+1, i+1),
			Start:       s.start,
			End:         s.end,
			Score:       scoreForDuration(dur),
		})
	}

	events <- Event{
		Kind:    EventProgress,
		Percent: 100,
		Message: fmt.Sprintf("done, %d highlights found", len(highlights)),
	}
	d.logger.Info().Int("highlights", len(highlights)).Msg("analysis complete")
	events <- Event{Kind: EventFinished, Highlights: highlights}
}

func (d *Detector) fail(events chan<- Event, msg string) {
	d.logger.Error().Msg(msg)
	events <- Event{Kind: EventError, Err: msg}
}

func (d *Detector) cancelled(events chan<- Event, partial []Highlight) {
	d.logger.Warn().Int("partial", len(partial)).Msg("analysis cancelled")
	events <- Event{Kind: EventFinished, Highlights: partial}
}

type scene struct {
	start time.Duration
	end   time.Duration
}

// pairBoundaries turns scene-change timestamps into (start, end) scenes
// covering the video, dropping segments shorter than minLen. The tail
// after the last boundary counts as a scene too.
func pairBoundaries(boundaries []time.Duration, total time.Duration, minLen time.Duration) []scene {
	var scenes []scene
	last := time.Duration(0)
	for _, b := range boundaries {
		if b <= last || b > total {
			continue
		}
		if b-last >= minLen {
			scenes = append(scenes, scene{start: last, end: b})
		}
		last = b
	}
	if total > last && total-last >= minLen {
		scenes = append(scenes, scene{start: last, end: total})
	}
	return scenes
}

// scoreForDuration maps scene length onto a 0-1 relevance score; a
// minute-long scene saturates the scale.
func scoreForDuration(d time.Duration) float64 {
	score := d.Seconds() / 60.0
	if score > 1.0 {
		score = 1.0
	}
	return float64(int(score*100)) / 100
}
