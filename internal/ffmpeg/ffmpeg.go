package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// maxStderrTail bounds how much encoder stderr is kept for diagnostics.
const maxStderrTail = 8 * 1024

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

// New creates an ffmpeg executor. Empty paths fall back to PATH lookup of
// the standard binary names.
func New(logger zerolog.Logger, ffmpegPath, ffprobePath string) (*Executor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	resolvedFFmpeg, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found at %q: %w", ffmpegPath, err)
	}
	resolvedFFprobe, err := exec.LookPath(ffprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found at %q: %w", ffprobePath, err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  resolvedFFmpeg,
		ffprobePath: resolvedFFprobe,
	}, nil
}

// Run executes ffmpeg with the given arguments, streaming progress and
// enforcing the optional wall-clock timeout. Cancellation sends SIGTERM
// first and falls back to a hard kill after a short grace period.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info", "-progress", "pipe:2"}
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newTailBuffer(maxStderrTail)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.streamOutput(stderr, tail, opts.ProgressHandler, opts.LogHandler)
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("ffmpeg timed out after %s: %w", opts.Timeout, ctx.Err())
		case errors.Is(ctx.Err(), context.Canceled):
			return ctx.Err()
		default:
			return fmt.Errorf("ffmpeg execution failed: %w\n%s", err, tail.String())
		}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg stderr, feeding progress blocks, log lines
// and the bounded diagnostic tail.
func (e *Executor) streamOutput(r io.Reader, tail *tailBuffer, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteLine(line)

		if logHandler != nil {
			logHandler(line)
		}

		switch {
		case strings.HasPrefix(line, "frame="):
			fmt.Sscanf(line, "frame=%d", &progressData.Frame)
		case strings.HasPrefix(line, "fps="):
			fmt.Sscanf(line, "fps=%f", &progressData.FPS)
		case strings.HasPrefix(line, "bitrate="):
			progressData.Bitrate = valueOf(line)
		case strings.HasPrefix(line, "out_time_us="):
			var us int64
			fmt.Sscanf(line, "out_time_us=%d", &us)
			progressData.OutTime = time.Duration(us) * time.Microsecond
		case strings.HasPrefix(line, "speed="):
			progressData.Speed = valueOf(line)
		case strings.HasPrefix(line, "progress="):
			// End of a progress block
			if progressHandler != nil {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}

func valueOf(line string) string {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// tailBuffer keeps the last N bytes of appended lines.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) WriteLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
