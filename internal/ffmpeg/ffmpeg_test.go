package ffmpeg

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, "", "")
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestExecutorCreationBadPath(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	if _, err := New(logger, "/no/such/ffmpeg-binary", ""); err == nil {
		t.Fatal("bogus ffmpeg path must fail")
	}
}

func TestParseSceneLines(t *testing.T) {
	lines := []string{
		"[Parsed_showinfo_1 @ 0x7f8] n:   0 pts:  75075 pts_time:2.503 duration:...",
		"[Parsed_showinfo_1 @ 0x7f8] n:   1 pts: 300300 pts_time:10.01 duration:...",
		"[Parsed_showinfo_1 @ 0x7f8] config in time_base: 1/30000",
		"garbage line without marker",
		"[Parsed_showinfo_1 @ 0x7f8] n:   2 pts: 450000 pts_time:notanumber x",
	}
	got := parseSceneLines(lines)
	if len(got) != 2 {
		t.Fatalf("want 2 timestamps, got %d: %v", len(got), got)
	}
	if got[0] != 2503*time.Millisecond {
		t.Errorf("first timestamp = %v", got[0])
	}
	if got[1] != 10010*time.Millisecond {
		t.Errorf("second timestamp = %v", got[1])
	}
}

func TestCutArgs(t *testing.T) {
	args := cutArgs("in.mp4", CutOptions{
		Start:  2500 * time.Millisecond,
		End:    10 * time.Second,
		Output: "out.mp4",
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i in.mp4",
		"-ss 2.500",
		"-to 10.000",
		"-c:v libx264",
		"-c:a aac",
		"-avoid_negative_ts 2",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("cut args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output must be the last argument: %v", args)
	}
}

func TestStreamOutputParsesProgressBlocks(t *testing.T) {
	input := strings.Join([]string{
		"frame=120",
		"fps=29.97",
		"bitrate=1549.2kbits/s",
		"out_time_us=4000000",
		"speed=1.01x",
		"progress=continue",
		"frame=240",
		"out_time_us=8000000",
		"progress=end",
	}, "\n")

	var got []Progress
	e := &Executor{logger: zerolog.Nop()}
	e.streamOutput(strings.NewReader(input), newTailBuffer(maxStderrTail), func(p *Progress) {
		got = append(got, *p)
	}, nil)

	if len(got) != 2 {
		t.Fatalf("want 2 progress blocks, got %d", len(got))
	}
	if got[0].Frame != 120 || got[0].OutTime != 4*time.Second {
		t.Errorf("first block wrong: %+v", got[0])
	}
	if got[0].Bitrate != "1549.2kbits/s" || got[0].Speed != "1.01x" {
		t.Errorf("first block string fields wrong: %+v", got[0])
	}
	if got[1].Frame != 240 || got[1].OutTime != 8*time.Second {
		t.Errorf("second block wrong: %+v", got[1])
	}
	// Fields reset between blocks.
	if got[1].Speed != "" {
		t.Errorf("stale speed carried into second block: %+v", got[1])
	}
}

func TestTailBufferKeepsOnlyTail(t *testing.T) {
	tail := newTailBuffer(32)
	for i := 0; i < 100; i++ {
		tail.WriteLine("0123456789")
	}
	s := tail.String()
	if len(s) > 32 {
		t.Fatalf("tail exceeds limit: %d bytes", len(s))
	}
	if !strings.HasSuffix(s, "0123456789\n") {
		t.Fatalf("tail lost the newest line: %q", s)
	}
}

func TestValueOf(t *testing.T) {
	if got := valueOf("speed= 1.2x "); got != "1.2x" {
		t.Errorf("valueOf = %q", got)
	}
	if got := valueOf("no separator here"); got != "" {
		t.Errorf("valueOf on junk = %q", got)
	}
	if got := valueOf("bitrate=N/A"); got != "N/A" {
		t.Errorf("valueOf = %q", got)
	}
}
