package app

import (
	"context"
	"errors"
	"sync"

	"github.com/kikiluvv/clipforge/internal/export"
	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/highlight"
	"github.com/rs/zerolog"
)

var (
	// ErrBusy signals that a worker of the requested kind is already running.
	ErrBusy = errors.New("a worker of this kind is already running")
	// ErrNoVideo signals an operation that needs a loaded video.
	ErrNoVideo = errors.New("no video loaded")
	// ErrNoHighlights signals an export attempt with nothing to cut.
	ErrNoHighlights = errors.New("no highlights to export")
)

// Analyzer is the detection worker the session drives.
type Analyzer interface {
	Run(ctx context.Context, videoPath string) <-chan highlight.Event
}

// BatchExporter is the export worker the session drives.
type BatchExporter interface {
	Run(ctx context.Context, req export.BatchRequest) <-chan export.Event
}

// Session holds the mutable state of one editing run: the loaded video,
// its detected highlights and the last export result. It enforces at
// most one active analysis and one active export at a time; results flow
// back in through relay goroutines watching the worker event channels.
type Session struct {
	mu sync.Mutex

	logger   zerolog.Logger
	analyzer Analyzer
	exporter BatchExporter

	videoPath  string
	videoInfo  *ffmpeg.VideoInfo
	highlights []highlight.Highlight
	lastExport []export.ExportedClipInfo

	analysisActive bool
	exportActive   bool
	cancelAnalysis context.CancelFunc
	cancelExport   context.CancelFunc
}

func NewSession(logger zerolog.Logger, analyzer Analyzer, exporter BatchExporter) *Session {
	return &Session{
		logger:   logger.With().Str("component", "session").Logger(),
		analyzer: analyzer,
		exporter: exporter,
	}
}

// LoadVideo resets the session around a new source video. Highlights
// from a previous video do not survive the switch.
func (s *Session) LoadVideo(path string, info *ffmpeg.VideoInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoPath = path
	s.videoInfo = info
	s.highlights = nil
	s.lastExport = nil
	s.logger.Info().Str("video", path).Msg("video loaded")
}

func (s *Session) Video() (string, *ffmpeg.VideoInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoPath, s.videoInfo
}

func (s *Session) Highlights() []highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]highlight.Highlight, len(s.highlights))
	copy(out, s.highlights)
	return out
}

// SetHighlights replaces the highlight list, e.g. when loading a saved
// session file instead of re-analyzing.
func (s *Session) SetHighlights(hls []highlight.Highlight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlights = append([]highlight.Highlight(nil), hls...)
}

func (s *Session) LastExport() []export.ExportedClipInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]export.ExportedClipInfo, len(s.lastExport))
	copy(out, s.lastExport)
	return out
}

// StartAnalysis launches the detection worker and relays its events to
// the returned channel. The terminal highlight list is stored on the
// session. Only one analysis may run at a time.
func (s *Session) StartAnalysis(ctx context.Context) (<-chan highlight.Event, error) {
	s.mu.Lock()
	if s.videoPath == "" {
		s.mu.Unlock()
		return nil, ErrNoVideo
	}
	if s.analysisActive {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.analysisActive = true
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelAnalysis = cancel
	videoPath := s.videoPath
	s.mu.Unlock()

	events := s.analyzer.Run(workerCtx, videoPath)
	out := make(chan highlight.Event)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Kind == highlight.EventFinished {
				s.mu.Lock()
				s.highlights = ev.Highlights
				s.mu.Unlock()
			}
			out <- ev
		}
		cancel()
		s.mu.Lock()
		s.analysisActive = false
		s.cancelAnalysis = nil
		s.mu.Unlock()
	}()
	return out, nil
}

// CancelAnalysis asks a running analysis to stop. The worker still
// terminates through its event channel.
func (s *Session) CancelAnalysis() {
	s.mu.Lock()
	cancel := s.cancelAnalysis
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StartExport launches the export worker over the given highlight
// selection. The terminal export list is stored on the session. Only one
// export may run at a time.
func (s *Session) StartExport(ctx context.Context, highlights []highlight.Highlight, outDir, presetName string) (<-chan export.Event, error) {
	s.mu.Lock()
	if s.videoPath == "" {
		s.mu.Unlock()
		return nil, ErrNoVideo
	}
	if len(highlights) == 0 {
		s.mu.Unlock()
		return nil, ErrNoHighlights
	}
	if s.exportActive {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.exportActive = true
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelExport = cancel
	req := export.BatchRequest{
		Source:     s.videoPath,
		Highlights: highlights,
		OutDir:     outDir,
		PresetName: presetName,
	}
	s.mu.Unlock()

	events := s.exporter.Run(workerCtx, req)
	out := make(chan export.Event)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Kind == export.EventBatchFinished {
				s.mu.Lock()
				s.lastExport = ev.Exported
				s.mu.Unlock()
			}
			out <- ev
		}
		cancel()
		s.mu.Lock()
		s.exportActive = false
		s.cancelExport = nil
		s.mu.Unlock()
	}()
	return out, nil
}

// CancelExport asks a running export to stop after the item in flight.
func (s *Session) CancelExport() {
	s.mu.Lock()
	cancel := s.cancelExport
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
