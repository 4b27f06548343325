package cli

import (
	"github.com/ralt/alpkit/internal/config"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "alpkit",
		Short: "Inspect Alpine packages and APKBUILD descriptors",
		Long: `Alpkit reads Alpine Linux packages and their build descriptors
and prints their metadata.

Supported inputs:
  - Alpine/APK package containers (.apk)
  - APKBUILD build descriptors, evaluated in a sandboxed shell`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringP("format", "f", "", "Output format (json, yaml, apkindex)")

	// Add subcommands
	rootCmd.AddCommand(NewApkCmd())
	rootCmd.AddCommand(NewApkbuildCmd())
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewIndexCmd())
	rootCmd.AddCommand(NewSchemaCmd())

	return rootCmd
}

// loadConfig reads the config file named by --config and applies the
// global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("format") {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logrus.Debugf("Configuration: %+v", *cfg)
	return cfg, nil
}

// render writes v to the command's output in the configured format.
func render(cmd *cobra.Command, cfg *config.Config, v any) error {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, err)
	}
	return output.Write(cmd.OutOrStdout(), format, v)
}

// logWarnings reports soft findings for an input.
func logWarnings(path string, warnings models.Warnings) {
	for _, warning := range warnings {
		logrus.Warnf("%s: %s", path, warning)
	}
}
