package api

import (
	"context"

	"audioconv/internal/config"
	"audioconv/internal/convert"
	"audioconv/internal/preflight"
)

// CollectStatus runs the directory and dependency checks and gathers catalog
// stats. A stats error is returned alongside an otherwise complete report.
func CollectStatus(ctx context.Context, cfg *config.Config, outputs *OutputsService) (ServiceStatus, error) {
	formats := convert.SupportedFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	status := ServiceStatus{
		Bind:           cfg.Server.Bind,
		UploadDir:      cfg.Paths.UploadDir,
		CatalogPath:    cfg.CatalogPath(),
		LockFilePath:   cfg.LockPath(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		DefaultFormat:  cfg.Conversion.DefaultFormat,
		Formats:        names,
		Dependencies:   FromDependencies(preflight.CheckSystemDeps(ctx, cfg)),
		Directories:    FromChecks(preflight.RunAll(ctx, cfg)),
	}
	stats, err := outputs.Stats(ctx)
	if err != nil {
		return status, err
	}
	status.Outputs = stats
	return status, nil
}
