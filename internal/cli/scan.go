package cli

import (
	"context"

	"github.com/ralt/alpkit/internal/apk"
	"github.com/ralt/alpkit/internal/apkbuild"
	"github.com/ralt/alpkit/internal/config"
	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/output"
	"github.com/ralt/alpkit/internal/scanner"
	"github.com/ralt/alpkit/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ScanResult is the outcome of inspecting one scanned file. Exactly one of
// Package, Apkbuild and Error is set.
type ScanResult struct {
	Path     string            `json:"path" yaml:"path"`
	Type     scanner.InputType `json:"type" yaml:"type"`
	Package  *apk.Summary      `json:"package,omitempty" yaml:"package,omitempty"`
	Apkbuild *models.Apkbuild  `json:"apkbuild,omitempty" yaml:"apkbuild,omitempty"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`

	pkg *apk.Package
}

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Inspect every package and APKBUILD under a directory",
		Long: `Walks a directory, decodes every .apk container and evaluates every
APKBUILD descriptor found. Inputs that fail are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Scan.Jobs = jobs
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			results, err := runScan(cmd.Context(), cfg, args[0], scanner.TypeUnknown)
			if err != nil {
				return err
			}

			if cfg.Output.Format == string(output.FormatAPKINDEX) {
				return output.WriteAPKINDEX(cmd.OutOrStdout(), scannedPackages(results))
			}
			return render(cmd, cfg, results)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Number of inputs inspected in parallel")

	return cmd
}

// runScan finds inputs under dir and inspects them with at most
// cfg.Scan.Jobs workers. Results keep the scan order. A known only type
// restricts the scan to inputs of that type.
func runScan(ctx context.Context, cfg *config.Config, dir string, only scanner.InputType) ([]ScanResult, error) {
	logrus.Infof("Scanning directory: %s", dir)
	sc := scanner.NewFileSystemScanner()
	found, err := sc.Scan(ctx, dir)
	if err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp, err), dir)
	}

	files := found[:0]
	for _, f := range found {
		if only == scanner.TypeUnknown || f.Type == only {
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		logrus.Warn("No packages or descriptors found in input directory")
		return []ScanResult{}, nil
	}

	reader := apkbuild.NewReader(cfg.ApkbuildConfig())
	results := make([]ScanResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scan.Jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = inspect(ctx, reader, cfg, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var infos []models.PackageInfo
	for _, r := range results {
		if r.Error != "" {
			logrus.Warnf("Failed to inspect %s: %s", r.Path, r.Error)
		}
		if r.pkg != nil {
			infos = append(infos, r.pkg.Info())
		}
	}
	for _, id := range utils.DetectDuplicates(infos) {
		logrus.Warnf("Duplicate package %s", id)
	}

	return results, nil
}

func inspect(ctx context.Context, reader *apkbuild.Reader, cfg *config.Config, file scanner.ScannedFile) ScanResult {
	result := ScanResult{Path: file.Path, Type: file.Type}

	switch file.Type {
	case scanner.TypeApk:
		pkg, err := apk.Open(file.Path, cfg.ApkConfig())
		if err != nil {
			result.Error = err.Error()
			return result
		}
		logWarnings(file.Path, pkg.Warnings())
		summary := pkg.Summary()
		result.Package = &summary
		result.pkg = pkg
	case scanner.TypeApkbuild:
		ab, err := reader.Read(ctx, file.Path)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		logWarnings(file.Path, ab.Warnings)
		result.Apkbuild = ab
	}

	return result
}

func scannedPackages(results []ScanResult) []*apk.Package {
	var pkgs []*apk.Package
	for _, r := range results {
		if r.pkg != nil {
			pkgs = append(pkgs, r.pkg)
		}
	}
	return pkgs
}
