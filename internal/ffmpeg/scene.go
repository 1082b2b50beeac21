package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DetectScenes finds scene-change timestamps using ffmpeg's scene filter.
// Threshold is on ffmpeg's 0-1 scene-score scale. The optional progress
// callback receives decode position as the scan advances.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64, onProgress ProgressFunc) ([]time.Duration, error) {
	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var lines []string

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
			"-f", "null",
			"-",
		},
		ProgressHandler: onProgress,
		LogHandler: func(line string) {
			if strings.Contains(line, "pts_time:") {
				lines = append(lines, line)
			}
		},
	}

	err := e.Run(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// ffmpeg exits nonzero for some benign null-muxer conditions even
		// when the showinfo lines we need were already produced.
		if !strings.Contains(err.Error(), "Conversion failed") &&
			!strings.Contains(err.Error(), "Invalid return value") &&
			!strings.Contains(err.Error(), "Output file is empty") {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	scenes := parseSceneLines(lines)
	e.logger.Info().Int("scenes", len(scenes)).Msg("scene detection complete")
	return scenes, nil
}

// parseSceneLines extracts scene-change timestamps from showinfo output
func parseSceneLines(lines []string) []time.Duration {
	var scenes []time.Duration
	for _, line := range lines {
		parts := strings.Split(line, "pts_time:")
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(parts[1]))
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
			scenes = append(scenes, time.Duration(seconds*float64(time.Second)))
		}
	}
	return scenes
}
