package cli

import (
	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewApkCmd creates the apk command
func NewApkCmd() *cobra.Command {
	var skipFiles, strict bool

	cmd := &cobra.Command{
		Use:   "apk FILE...",
		Short: "Print the metadata of package containers",
		Long: `Decodes .apk package containers and prints their signatures,
.PKGINFO metadata, install scripts and file inventory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip-files") {
				cfg.Apk.SkipFiles = skipFiles
			}
			if cmd.Flags().Changed("strict") {
				cfg.Apk.StrictEntryKinds = strict
			}

			pkgs := make([]*apk.Package, 0, len(args))
			for _, path := range args {
				logrus.Debugf("Parsing package: %s", path)
				pkg, err := apk.Open(path, cfg.ApkConfig())
				if err != nil {
					return err
				}
				logWarnings(path, pkg.Warnings())
				pkgs = append(pkgs, pkg)
			}

			if cfg.Output.Format == string(output.FormatAPKINDEX) {
				return output.WriteAPKINDEX(cmd.OutOrStdout(), pkgs)
			}
			if len(pkgs) == 1 {
				return render(cmd, cfg, pkgs[0].Summary())
			}
			summaries := make([]apk.Summary, 0, len(pkgs))
			for _, pkg := range pkgs {
				summaries = append(summaries, pkg.Summary())
			}
			return render(cmd, cfg, summaries)
		},
	}

	cmd.Flags().BoolVar(&skipFiles, "skip-files", false, "Stop after the control segment")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on unsupported archive entry kinds")

	return cmd
}
