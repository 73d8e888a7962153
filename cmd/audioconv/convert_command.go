package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"audioconv/internal/config"
	"audioconv/internal/convert"
	"audioconv/internal/logging"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var format string
	var activationBytes string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a local file without going through the HTTP service",
		Long: "Convert a local audio file with the same pipeline the service uses. " +
			"The output is written next to the input; the input is left in place.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}
			info, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("inspect input %q: %w", input, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", input)
			}
			if !convert.AllowedFile(input) {
				return fmt.Errorf("unsupported file type %q (allowed: aax, %s)", convert.Extension(input), strings.Join(formatNames(), ", "))
			}

			target := convert.ParseFormat(format, convert.Format(cfg.Conversion.DefaultFormat))
			if !slices.Contains(convert.SupportedFormats(), target) {
				return fmt.Errorf("unsupported output format %q (choose from %s)", target, strings.Join(formatNames(), ", "))
			}

			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			dispatcher := convert.NewDispatcher(cfg, convert.WithLogger(logger))
			output, err := dispatcher.Convert(cmd.Context(), convert.Request{
				InputPath:     input,
				Format:        target,
				ActivationKey: activationBytes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (mp3, wav, ogg, m4a, flac)")
	cmd.Flags().StringVar(&activationBytes, "activation-bytes", "", "AAX activation bytes (8 characters)")
	return cmd
}

func formatNames() []string {
	formats := convert.SupportedFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
