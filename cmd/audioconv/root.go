package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{configFlag: new(string), logLevelFlag: new(string)}

	rootCmd := &cobra.Command{
		Use:   "audioconv",
		Short: "Upload, convert and download audio files over HTTP",
		Long: "audioconv accepts audio uploads, converts them with ffmpeg " +
			"(decrypting Audible AAX books with the owner's activation bytes) " +
			"and serves the result for download.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(ctx.logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(ctx),
		newConvertCommand(ctx),
		newOutputsCommand(ctx),
		newStatusCommand(ctx),
		newConfigCommand(ctx),
	)
	return rootCmd
}
