package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"audioconv/internal/api"
	"audioconv/internal/catalog"
	"audioconv/internal/config"
	"audioconv/internal/logging"
	"audioconv/internal/uploads"
)

func newOutputsCommand(ctx *commandContext) *cobra.Command {
	outputsCmd := &cobra.Command{
		Use:   "outputs",
		Short: "Inspect and prune published conversions",
	}

	outputsCmd.AddCommand(newOutputsListCommand(ctx))
	outputsCmd.AddCommand(newOutputsPruneCommand(ctx))

	return outputsCmd
}

func newOutputsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded conversions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(_ *config.Config, store *catalog.Store) error {
				items, err := api.NewOutputsService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.ConversionListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Created", "Status", "Original", "Format", "DRM", "Size", "Downloads", "Token"},
					conversionRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (converted, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newOutputsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete outputs and failed uploads older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				age := olderThan
				if age <= 0 {
					age = cfg.OutputMaxAge()
				}
				if age <= 0 {
					return errors.New("no cutoff: pass --older-than or set retention.output_max_age_hours")
				}

				files, err := uploads.NewStore(cfg.Paths.UploadDir, logging.NewNop())
				if err != nil {
					return err
				}
				result, err := store.PruneOlderThan(cmd.Context(), time.Now().Add(-age), files.Remove)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d conversions (%s freed)\n", result.Removed, formatBytes(result.BytesFreed))
				if result.Failures > 0 {
					fmt.Fprintf(out, "%d files could not be removed; last error: %v\n", result.Failures, result.LastFailure)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (e.g. 72h); defaults to retention.output_max_age_hours")
	return cmd
}

func parseStatuses(values []string) ([]catalog.Status, error) {
	var statuses []catalog.Status
	for _, raw := range values {
		value := catalog.Status(strings.ToLower(strings.TrimSpace(raw)))
		switch value {
		case "":
			continue
		case catalog.StatusConverted, catalog.StatusFailed:
			statuses = append(statuses, value)
		default:
			return nil, fmt.Errorf("unknown status %q (use converted or failed)", raw)
		}
	}
	return statuses, nil
}

func conversionRows(items []api.ConversionRecord) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		token := item.Token
		if token == "" {
			token = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.CreatedAt,
			item.Status,
			item.OriginalName,
			item.InputFormat + " -> " + item.TargetFormat,
			yesNo(item.DRM),
			formatBytes(item.SizeBytes),
			strconv.Itoa(item.DownloadCount),
			token,
		})
	}
	return rows
}
