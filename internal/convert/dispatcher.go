package convert

import (
	"context"

	"audioconv/internal/config"
)

// Request describes one conversion.
type Request struct {
	InputPath     string
	Format        Format
	ActivationKey string
}

// Converter produces an output file for a request and returns its path.
type Converter interface {
	Convert(ctx context.Context, req Request) (string, error)
}

// Dispatcher routes AAX inputs to the DRM adapter and everything else to the
// standard adapter.
type Dispatcher struct {
	drm      Converter
	standard Converter
}

// NewDispatcher wires both adapters from the conversion config. Options are
// applied to both; the configured timeout is used unless an option overrides it.
func NewDispatcher(cfg *config.Config, opts ...Option) *Dispatcher {
	ffmpeg, ffprobe := "ffmpeg", "ffprobe"
	var all []Option
	if cfg != nil {
		ffmpeg = cfg.Conversion.FFmpegBinary
		ffprobe = cfg.Conversion.FFprobeBinary
		all = append(all, WithTimeout(cfg.ConversionTimeout()))
	}
	all = append(all, opts...)
	return &Dispatcher{
		drm:      NewDRMConverter(ffmpeg, all...),
		standard: NewStandardConverter(ffmpeg, ffprobe, all...),
	}
}

// NewDispatcherWith builds a dispatcher over arbitrary adapters.
func NewDispatcherWith(drm, standard Converter) *Dispatcher {
	return &Dispatcher{drm: drm, standard: standard}
}

// Convert picks an adapter from the input path's extension.
func (d *Dispatcher) Convert(ctx context.Context, req Request) (string, error) {
	if IsDRM(req.InputPath) {
		return d.drm.Convert(ctx, req)
	}
	return d.standard.Convert(ctx, req)
}
