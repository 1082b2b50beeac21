package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/pkg/util"
	"github.com/rs/zerolog"
)

// DefaultTranscodeTimeout bounds a single preset re-encode.
const DefaultTranscodeTimeout = 3 * time.Minute

// Transcoder turns a cut clip into its final preset form: a verbatim
// copy for no-recode presets, an encoder pass otherwise.
type Transcoder struct {
	logger  zerolog.Logger
	ffmpeg  *ffmpeg.Executor
	timeout time.Duration
}

func NewTranscoder(logger zerolog.Logger, exec *ffmpeg.Executor, timeout time.Duration) *Transcoder {
	if timeout == 0 {
		timeout = DefaultTranscodeTimeout
	}
	return &Transcoder{
		logger:  logger.With().Str("component", "transcoder").Logger(),
		ffmpeg:  exec,
		timeout: timeout,
	}
}

// Export places srcCut into outDir under filename according to the
// preset, returning the final path. Partial output is cleaned up on
// failure.
func (t *Transcoder) Export(ctx context.Context, srcCut, outDir string, preset Preset, filename string) (string, error) {
	if !util.FileExists(srcCut) {
		return "", fmt.Errorf("source cut clip not found: %s", srcCut)
	}
	if err := util.EnsureDir(outDir); err != nil {
		return "", fmt.Errorf("cannot create output folder %s: %w", outDir, err)
	}
	finalPath := filepath.Join(outDir, filename)

	t.logger.Info().
		Str("source", filepath.Base(srcCut)).
		Str("preset", preset.Name).
		Str("output", finalPath).
		Msg("exporting clip")

	if !preset.Recode {
		if err := util.CopyFile(srcCut, finalPath); err != nil {
			return "", fmt.Errorf("copy export failed: %w", err)
		}
		t.logger.Info().Str("output", finalPath).Msg("clip exported (copy)")
		return finalPath, nil
	}

	if err := t.ffmpeg.Transcode(ctx, srcCut, finalPath, preset.Params, t.timeout); err != nil {
		_ = os.Remove(finalPath)
		return "", fmt.Errorf("preset %q transcode failed: %w", preset.Name, err)
	}

	t.logger.Info().Str("output", finalPath).Msg("clip exported (re-encoded)")
	return finalPath, nil
}
