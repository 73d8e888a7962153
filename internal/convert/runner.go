package convert

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"audioconv/internal/logging"
	"audioconv/internal/media/ffprobe"
	"audioconv/internal/services"
)

// maxDiagnosticBytes bounds the tool output kept on an ExternalToolError.
// ffmpeg prints its banner first, so the tail carries the cause.
const maxDiagnosticBytes = 8 * 1024

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// execRunner runs name and returns its combined output. A failed run is
// reported as *services.ExternalToolError.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err == nil {
		return output, nil
	}
	toolErr := &services.ExternalToolError{
		Tool:     filepath.Base(name),
		Args:     redactArgs(args),
		ExitCode: -1,
		Output:   tail(output, maxDiagnosticBytes),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	if toolErr.Output == "" {
		toolErr.Output = err.Error()
	}
	return output, toolErr
}

func tail(output []byte, limit int) string {
	if len(output) <= limit {
		return string(output)
	}
	return "..." + string(output[len(output)-limit:])
}

type options struct {
	run     commandRunner
	probe   probeFunc
	logger  *slog.Logger
	timeout time.Duration
}

// Option customizes a converter.
type Option func(*options)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(r commandRunner) Option {
	return func(o *options) {
		if r != nil {
			o.run = r
		}
	}
}

// WithProbe overrides the ffprobe inspection used by StandardConverter.
func WithProbe(p probeFunc) Option {
	return func(o *options) {
		if p != nil {
			o.probe = p
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTimeout bounds each external invocation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{run: execRunner, probe: ffprobe.Inspect}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = logging.NewComponentLogger(o.logger, "convert")
	return o
}

func (o options) runTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.run(ctx, name, args...)
}
