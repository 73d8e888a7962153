package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"audioconv/internal/api"
	"audioconv/internal/catalog"
	"audioconv/internal/config"
	"audioconv/internal/convert"
	"audioconv/internal/deps"
	"audioconv/internal/logging"
	"audioconv/internal/media/ffprobe"
	"audioconv/internal/preflight"
	"audioconv/internal/server"
	"audioconv/internal/uploads"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload and conversion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if value := strings.TrimSpace(bind); value != "" {
				cfg.Server.Bind = value
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the listen address (host:port)")
	return cmd
}

func runServer(cmdCtx context.Context, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "*.log", Exclude: []string{cfg.LogFilePath()}},
	)

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, result := range failed {
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Detail)
	}
	warnMissingDependencies(logger, preflight.CheckSystemDeps(signalCtx, cfg))

	store, err := uploads.NewStore(cfg.Paths.UploadDir, logger)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}
	defer cat.Close()

	dispatcher := convert.NewDispatcher(cfg, convert.WithLogger(logger))
	ffprobeBinary := cfg.Conversion.FFprobeBinary
	svc := api.NewConversionService(store, dispatcher,
		api.WithCatalog(cat),
		api.WithDefaultFormat(convert.Format(cfg.Conversion.DefaultFormat)),
		api.WithOutputProbe(func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBinary, path)
		}),
		api.WithLogger(logger),
	)

	srv := server.New(cfg, svc, logger, server.WithOutputs(api.NewOutputsService(cat)))
	if err := srv.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("audioconv shutting down")
	return nil
}

func warnMissingDependencies(logger *slog.Logger, statuses []deps.Status) {
	missing := deps.Missing(statuses)
	for _, status := range missing {
		logging.WarnWithContext(logger, "dependency unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldImpact, "conversions needing it will fail"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set conversion.ffmpeg_binary"),
		)
	}
	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "warn: %d conversion dependencies unavailable; run `audioconv status` for details\n", len(missing))
	}
}
