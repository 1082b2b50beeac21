package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
)

// DefaultCutTimeout bounds a single clip extraction.
const DefaultCutTimeout = 2 * time.Minute

// ExtractClip cuts [Start, End) from input into opts.Output with a neutral
// re-encode. Success requires exit code 0 AND a non-empty output file;
// partial output is removed on failure.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts CutOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if !util.FileExists(input) {
		return fmt.Errorf("input video not found: %s", input)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultCutTimeout
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Msg("extracting clip")

	args := cutArgs(input, opts)
	runOpts := RunOptions{
		Args:    args,
		Timeout: timeout,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		_ = os.Remove(opts.Output)
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	if !util.NonEmptyFile(opts.Output) {
		_ = os.Remove(opts.Output)
		return fmt.Errorf("encoder exited cleanly but output %s is missing or empty", opts.Output)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// cutArgs builds the trim invocation. -ss/-to follow the input so the
// range is interpreted on source timestamps; avoid_negative_ts keeps the
// muxer happy when clipping mid-stream.
func cutArgs(input string, opts CutOptions) []string {
	return []string{
		"-i", input,
		"-ss", util.FormatSeconds(opts.Start),
		"-to", util.FormatSeconds(opts.End),
		"-c:v", DefaultVideoCodec,
		"-preset", DefaultPreset,
		"-crf", fmt.Sprintf("%d", DefaultCRF),
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-avoid_negative_ts", "2",
		"-movflags", "+faststart",
		opts.Output,
	}
}

// Transcode runs ffmpeg with caller-supplied output parameters, used by
// the preset exporter. The same success contract as ExtractClip applies.
func (e *Executor) Transcode(ctx context.Context, input, output string, params []string, timeout time.Duration) error {
	if !util.FileExists(input) {
		return fmt.Errorf("input clip not found: %s", input)
	}

	args := append([]string{"-i", input}, params...)
	args = append(args, output)

	runOpts := RunOptions{
		Args:    args,
		Timeout: timeout,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("transcode")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("transcode failed: %w", err)
	}
	if !util.NonEmptyFile(output) {
		_ = os.Remove(output)
		return fmt.Errorf("encoder exited cleanly but output %s is missing or empty", output)
	}
	return nil
}
