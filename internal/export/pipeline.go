package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/highlight"
	"github.com/rs/zerolog"
)

// ExportedClipInfo describes one successfully exported clip, carrying
// enough for the planner to schedule it.
type ExportedClipInfo struct {
	Path            string              `json:"path"`
	Description     string              `json:"description"`
	TitleSuggestion string              `json:"title_suggestion"`
	Highlight       highlight.Highlight `json:"highlight"`
}

// EventKind distinguishes export pipeline events.
type EventKind int

const (
	EventItemStarted EventKind = iota
	EventItemFinished
	EventBatchFinished
	EventBatchError
)

// Event is an export worker notification. EventBatchFinished is always
// the last event of a batch, including after cancellation; EventBatchError
// precedes it only when the batch could not start at all.
type Event struct {
	Kind        EventKind
	Index       int
	Description string
	Path        string
	OK          bool
	Err         string
	Exported    []ExportedClipInfo
	Successes   int
}

// Cutter extracts a [start, end) range from a source video.
type Cutter interface {
	Cut(ctx context.Context, src string, start, end time.Duration, dst string) error
}

// Exporter turns a cut clip into its final preset form.
type Exporter interface {
	Export(ctx context.Context, cutPath, outDir string, preset Preset, filename string) (string, error)
}

// FFmpegCutter adapts the encoder executor to the Cutter port.
type FFmpegCutter struct {
	Exec    *ffmpeg.Executor
	Timeout time.Duration
}

func (c *FFmpegCutter) Cut(ctx context.Context, src string, start, end time.Duration, dst string) error {
	return c.Exec.ExtractClip(ctx, src, ffmpeg.CutOptions{
		Start:   start,
		End:     end,
		Output:  dst,
		Timeout: c.Timeout,
	})
}

// BatchRequest names the inputs of one export batch.
type BatchRequest struct {
	Source     string
	Highlights []highlight.Highlight
	OutDir     string
	PresetName string
}

// Pipeline exports a batch of highlights sequentially on a worker
// goroutine: cut to a private temp dir, transcode to the output dir,
// report per-item and batch events.
type Pipeline struct {
	logger   zerolog.Logger
	cutter   Cutter
	exporter Exporter
}

func NewPipeline(logger zerolog.Logger, cutter Cutter, exporter Exporter) *Pipeline {
	return &Pipeline{
		logger:   logger.With().Str("component", "export").Logger(),
		cutter:   cutter,
		exporter: exporter,
	}
}

// Run launches the export worker. The returned channel delivers item
// events in submission order followed by exactly one EventBatchFinished,
// then closes. A failed item does not stop the batch; cancellation does,
// after cleaning up the artifact in flight.
func (p *Pipeline) Run(ctx context.Context, req BatchRequest) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)
		p.export(ctx, req, events)
	}()
	return events
}

func (p *Pipeline) export(ctx context.Context, req BatchRequest, events chan<- Event) {
	preset, known := LookupPreset(req.PresetName)
	if !known && req.PresetName != "" {
		p.logger.Warn().
			Str("preset", req.PresetName).
			Str("fallback", preset.Name).
			Msg("unknown preset, using fallback")
	}

	p.logger.Info().
		Str("source", req.Source).
		Int("highlights", len(req.Highlights)).
		Str("preset", preset.Name).
		Str("out_dir", req.OutDir).
		Msg("starting export batch")

	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		p.abort(events, fmt.Sprintf("cannot create output folder %s: %v", req.OutDir, err))
		return
	}
	tempDir, err := os.MkdirTemp("", "clipforge-cut-*")
	if err != nil {
		p.abort(events, fmt.Sprintf("cannot create temp folder: %v", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			p.logger.Warn().Err(err).Str("dir", tempDir).Msg("temp folder cleanup failed")
		}
	}()

	var exported []ExportedClipInfo
	cancelledMid := false

	for i, hl := range req.Highlights {
		if ctx.Err() != nil {
			cancelledMid = true
			break
		}

		events <- Event{Kind: EventItemStarted, Index: i, Description: hl.Description}

		if hl.End <= hl.Start {
			p.itemFailed(events, i, hl.Description,
				fmt.Sprintf("invalid range for %q: end must be after start", hl.Description))
			continue
		}

		base := clipBaseName(i+1, hl.Description, preset.Name)
		filename := resolveCollision(req.OutDir, base, preset.Extension)
		tempCut := filepath.Join(tempDir, fmt.Sprintf("cut_%03d.mp4", i+1))

		if err := p.cutter.Cut(ctx, req.Source, hl.Start, hl.End, tempCut); err != nil {
			if ctx.Err() != nil {
				_ = os.Remove(tempCut)
				cancelledMid = true
				break
			}
			p.itemFailed(events, i, hl.Description, fmt.Sprintf("cut failed: %v", err))
			continue
		}
		if ctx.Err() != nil {
			_ = os.Remove(tempCut)
			cancelledMid = true
			break
		}

		finalPath, err := p.exporter.Export(ctx, tempCut, req.OutDir, preset, filename)
		p.removeTemp(tempCut)
		if err != nil {
			if ctx.Err() != nil {
				cancelledMid = true
				break
			}
			p.itemFailed(events, i, hl.Description, fmt.Sprintf("export failed: %v", err))
			continue
		}
		if ctx.Err() != nil {
			_ = os.Remove(finalPath)
			cancelledMid = true
			break
		}

		exported = append(exported, ExportedClipInfo{
			Path:            finalPath,
			Description:     hl.Description,
			TitleSuggestion: titleFor(hl),
			Highlight:       hl,
		})
		events <- Event{
			Kind:        EventItemFinished,
			Index:       i,
			Description: hl.Description,
			Path:        finalPath,
			OK:          true,
		}
	}

	if cancelledMid {
		p.logger.Warn().
			Int("exported", len(exported)).
			Int("requested", len(req.Highlights)).
			Msg("export batch cancelled")
	} else {
		p.logger.Info().
			Int("exported", len(exported)).
			Int("requested", len(req.Highlights)).
			Msg("export batch complete")
	}
	events <- Event{Kind: EventBatchFinished, Exported: exported, Successes: len(exported)}
}

func (p *Pipeline) itemFailed(events chan<- Event, index int, description, msg string) {
	p.logger.Error().Int("item", index+1).Msg(msg)
	events <- Event{Kind: EventItemFinished, Index: index, Description: description, OK: false, Err: msg}
}

// abort reports a batch that could not start: one error event, then an
// empty terminal event so consumers always see EventBatchFinished last.
func (p *Pipeline) abort(events chan<- Event, msg string) {
	p.logger.Error().Msg(msg)
	events <- Event{Kind: EventBatchError, Err: msg}
	events <- Event{Kind: EventBatchFinished}
}

func (p *Pipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn().Err(err).Str("file", path).Msg("temp cut cleanup failed")
	}
}

// titleFor derives a post title suggestion from the highlight.
func titleFor(hl highlight.Highlight) string {
	return fmt.Sprintf("%s [%ds]", hl.Description, int(hl.Duration().Seconds()))
}
