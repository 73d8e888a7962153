package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audioconv/internal/logging"
	"audioconv/internal/services"
)

// StandardConverter decodes any ffmpeg-readable audio and re-encodes it.
type StandardConverter struct {
	ffmpeg  string
	ffprobe string
	opts    options
}

// NewStandardConverter builds an adapter over the given binaries.
func NewStandardConverter(ffmpegBinary, ffprobeBinary string, opts ...Option) *StandardConverter {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &StandardConverter{ffmpeg: ffmpegBinary, ffprobe: ffprobeBinary, opts: buildOptions(opts)}
}

// Convert returns ErrDecode when ffprobe cannot read an audio stream, and
// ErrEncode when the target is unsupported or ffmpeg fails. When the output
// path equals the input, ffmpeg writes a sibling file that then replaces
// the input.
func (c *StandardConverter) Convert(ctx context.Context, req Request) (string, error) {
	logger := logging.WithContext(ctx, c.opts.logger)

	probe, err := c.opts.probe(ctx, c.ffprobe, req.InputPath)
	if err != nil {
		return "", services.Wrap(services.ErrDecode, "convert", "ffprobe", "input is not decodable audio", err)
	}
	if probe.AudioStreamCount() == 0 {
		return "", services.Wrap(services.ErrDecode, "convert", "ffprobe", "input has no audio stream", nil)
	}

	codecArgs, ok := encodeArgs(req.Format)
	if !ok {
		return "", services.Wrap(services.ErrEncode, "convert", "select encoder",
			fmt.Sprintf("unsupported target format %q", req.Format), nil)
	}

	output := OutputPath(req.InputPath, req.Format)
	target := output
	if output == req.InputPath {
		target = strings.TrimSuffix(req.InputPath, filepath.Ext(req.InputPath)) + ".converting." + string(req.Format)
	}

	args := make([]string, 0, len(codecArgs)+6)
	args = append(args, "-y", "-i", req.InputPath, "-vn")
	args = append(args, codecArgs...)
	args = append(args, target)

	logger.Debug("running standard conversion",
		logging.String("input", req.InputPath),
		logging.String("output", output),
		logging.String("source_codec", probe.AudioCodec()),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	started := time.Now()
	if _, err := c.opts.runTool(ctx, c.ffmpeg, args...); err != nil {
		logging.ErrorWithContext(logger, "standard conversion failed", "standard_conversion_failed",
			logging.String("input", req.InputPath),
			logging.String(logging.FieldFormat, string(req.Format)),
			logging.Error(err),
		)
		return "", services.Wrap(services.ErrEncode, "convert", "ffmpeg", "encode failed", err)
	}

	if target != output {
		if err := os.Rename(target, output); err != nil {
			return "", services.Wrap(services.ErrEncode, "convert", "replace input", "move encoded file into place", err)
		}
	}
	logger.Debug("standard conversion complete",
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}
