package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"audioconv/internal/api"
	"audioconv/internal/catalog"
	"audioconv/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report directories, ffmpeg tooling and catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				status, statsErr := api.CollectStatus(cmd.Context(), cfg, api.NewOutputsService(store))
				if asJSON {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string
				lines = append(lines, renderSectionHeader("Service", colorize)...)
				lines = append(lines,
					renderStatusLine("Config", statusInfo, configLabel(ctx), colorize),
					renderStatusLine("Bind", statusInfo, status.Bind, colorize),
					renderStatusLine("Upload limit", statusInfo, formatBytes(status.MaxUploadBytes), colorize),
					renderStatusLine("Formats", statusInfo, fmt.Sprintf("%s (default %s)", strings.Join(status.Formats, ", "), status.DefaultFormat), colorize),
				)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Directories", colorize)...)
				lines = append(lines, directoryLines(status.Directories, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
				lines = append(lines, dependencyLines(status.Dependencies, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Outputs", colorize)...)
				lines = append(lines, outputLines(status.Outputs, colorize)...)
				if statsErr != nil {
					lines = append(lines, renderStatusLine("Catalog", statusError, statsErr.Error(), colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the status report as JSON")
	return cmd
}

func configLabel(ctx *commandContext) string {
	if ctx.configPath == "" {
		return "defaults"
	}
	if !ctx.configExists {
		return ctx.configPath + " (not found, defaults used)"
	}
	return ctx.configPath
}
