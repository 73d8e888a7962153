package convert

import (
	"context"
	"time"

	"audioconv/internal/logging"
	"audioconv/internal/services"
)

// DRMConverter decrypts and encodes AAX audiobooks with a single ffmpeg run.
type DRMConverter struct {
	ffmpeg string
	opts   options
}

// NewDRMConverter builds an adapter that invokes the given ffmpeg binary.
func NewDRMConverter(ffmpegBinary string, opts ...Option) *DRMConverter {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &DRMConverter{ffmpeg: ffmpegBinary, opts: buildOptions(opts)}
}

// Convert validates the activation key before anything runs. The target
// format only selects the codec: libmp3lame for mp3, PCM for anything else.
// A failed run leaves any partial output where ffmpeg wrote it.
func (c *DRMConverter) Convert(ctx context.Context, req Request) (string, error) {
	key, err := CleanActivationKey(req.ActivationKey)
	if err != nil {
		return "", err
	}

	output := OutputPath(req.InputPath, req.Format)
	codec := "pcm_s16le"
	if req.Format == FormatMP3 {
		codec = "libmp3lame"
	}
	args := []string{
		"-y",
		"-activation_bytes", key,
		"-i", req.InputPath,
		"-c:a", codec,
		"-ab", Bitrate,
		"-map_metadata", "0",
		"-id3v2_version", "3",
		output,
	}

	logger := logging.WithContext(ctx, c.opts.logger)
	logger.Debug("running drm conversion",
		logging.String("input", req.InputPath),
		logging.String("output", output),
		logging.Any("args", redactArgs(args)),
	)
	started := time.Now()
	if _, err := c.opts.runTool(ctx, c.ffmpeg, args...); err != nil {
		logging.ErrorWithContext(logger, "drm conversion failed", "drm_conversion_failed",
			logging.String("input", req.InputPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the activation bytes belong to the account that owns this book"),
		)
		return "", services.Wrap(services.ErrExternalTool, "convert", "ffmpeg drm", "decrypt and encode", err)
	}
	logger.Debug("drm conversion complete",
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}
