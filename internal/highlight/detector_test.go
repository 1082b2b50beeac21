package highlight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/rs/zerolog"
)

type fakeVideoTool struct {
	info       *ffmpeg.VideoInfo
	probeErr   error
	boundaries []time.Duration
	scenesErr  error
	onDetect   func(ctx context.Context)
}

func (f *fakeVideoTool) ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeVideoTool) DetectScenes(ctx context.Context, input string, threshold float64, onProgress ffmpeg.ProgressFunc) ([]time.Duration, error) {
	if f.onDetect != nil {
		f.onDetect(ctx)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.boundaries, f.scenesErr
}

func writeTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

func terminal(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	last := events[len(events)-1]
	if last.Kind == EventProgress {
		t.Fatalf("last event is progress, want terminal: %+v", last)
	}
	return last
}

func TestDetectorFiltersShortScenes(t *testing.T) {
	// Boundaries at 2s and 10s over a 115s video yield scenes
	// (0,2), (2,10), (10,115); with a 3s minimum only the last two qualify.
	tool := &fakeVideoTool{
		info: &ffmpeg.VideoInfo{
			Duration: 115 * time.Second,
			FPS:      30,
		},
		boundaries: []time.Duration{2 * time.Second, 10 * time.Second},
	}
	cfg := Config{Threshold: 27, MinSceneLen: 2 * time.Second, MinHighlight: 3 * time.Second}
	d := NewDetector(zerolog.Nop(), tool, cfg)

	events := collect(t, d.Run(context.Background(), writeTestVideo(t)))
	last := terminal(t, events)
	if last.Kind != EventFinished {
		t.Fatalf("want finished, got %+v", last)
	}
	if len(last.Highlights) != 2 {
		t.Fatalf("want 2 highlights, got %d: %+v", len(last.Highlights), last.Highlights)
	}
	if last.Highlights[0].Start != 2*time.Second || last.Highlights[0].End != 10*time.Second {
		t.Errorf("first highlight range wrong: %+v", last.Highlights[0])
	}
	if last.Highlights[1].Start != 10*time.Second || last.Highlights[1].End != 115*time.Second {
		t.Errorf("second highlight range wrong: %+v", last.Highlights[1])
	}
	// 105s scene saturates the duration score.
	if last.Highlights[1].Score != 1.0 {
		t.Errorf("want saturated score, got %v", last.Highlights[1].Score)
	}
}

func TestDetectorProgressMonotonic(t *testing.T) {
	tool := &fakeVideoTool{
		info:       &ffmpeg.VideoInfo{Duration: 60 * time.Second, FPS: 25},
		boundaries: []time.Duration{20 * time.Second, 40 * time.Second},
	}
	d := NewDetector(zerolog.Nop(), tool, DefaultConfig())

	events := collect(t, d.Run(context.Background(), writeTestVideo(t)))
	prev := -1
	for _, ev := range events {
		if ev.Kind != EventProgress {
			continue
		}
		if ev.Percent < prev {
			t.Fatalf("progress went backwards: %d after %d", ev.Percent, prev)
		}
		prev = ev.Percent
	}
	if last := terminal(t, events); last.Kind != EventFinished {
		t.Fatalf("want finished terminal event, got %+v", last)
	}
}

func TestDetectorMissingFile(t *testing.T) {
	d := NewDetector(zerolog.Nop(), &fakeVideoTool{}, DefaultConfig())
	events := collect(t, d.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")))
	last := terminal(t, events)
	if last.Kind != EventError {
		t.Fatalf("want error event, got %+v", last)
	}
}

func TestDetectorInvalidFPS(t *testing.T) {
	tool := &fakeVideoTool{info: &ffmpeg.VideoInfo{Duration: time.Minute, FPS: 0}}
	d := NewDetector(zerolog.Nop(), tool, DefaultConfig())
	events := collect(t, d.Run(context.Background(), writeTestVideo(t)))
	last := terminal(t, events)
	if last.Kind != EventError {
		t.Fatalf("want error event for zero fps, got %+v", last)
	}
}

func TestDetectorProbeFailure(t *testing.T) {
	tool := &fakeVideoTool{probeErr: errors.New("boom")}
	d := NewDetector(zerolog.Nop(), tool, DefaultConfig())
	events := collect(t, d.Run(context.Background(), writeTestVideo(t)))
	if last := terminal(t, events); last.Kind != EventError {
		t.Fatalf("want error event, got %+v", last)
	}
}

func TestDetectorCancellationIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tool := &fakeVideoTool{
		info:     &ffmpeg.VideoInfo{Duration: time.Minute, FPS: 30},
		onDetect: func(context.Context) { cancel() },
	}
	d := NewDetector(zerolog.Nop(), tool, DefaultConfig())

	events := collect(t, d.Run(ctx, writeTestVideo(t)))
	last := terminal(t, events)
	if last.Kind != EventFinished {
		t.Fatalf("cancellation must finish, not error: %+v", last)
	}
	if len(last.Highlights) != 0 {
		t.Fatalf("cancelled before scene list, want empty result, got %d", len(last.Highlights))
	}
}

func TestPairBoundaries(t *testing.T) {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	tests := []struct {
		name       string
		boundaries []time.Duration
		total      time.Duration
		minLen     time.Duration
		want       []scene
	}{
		{
			name:       "no boundaries yields whole video",
			boundaries: nil,
			total:      sec(30),
			minLen:     sec(2),
			want:       []scene{{0, sec(30)}},
		},
		{
			name:       "short segment dropped",
			boundaries: []time.Duration{sec(1), sec(10)},
			total:      sec(20),
			minLen:     sec(2),
			want:       []scene{{sec(1), sec(10)}, {sec(10), sec(20)}},
		},
		{
			name:       "boundary beyond duration ignored",
			boundaries: []time.Duration{sec(5), sec(40)},
			total:      sec(20),
			minLen:     sec(2),
			want:       []scene{{0, sec(5)}, {sec(5), sec(20)}},
		},
		{
			name:       "tail shorter than min dropped",
			boundaries: []time.Duration{sec(19)},
			total:      sec(20),
			minLen:     sec(2),
			want:       []scene{{0, sec(19)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pairBoundaries(tt.boundaries, tt.total, tt.minLen)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d scenes %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("scene %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "highlights.json")
	in := []Highlight{
		{Description: "Highlight #1 (Scene 2)", Start: 2 * time.Second, End: 10 * time.Second, Score: 0.13},
	}
	if err := SaveList(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadList(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
