package cli

import (
	"time"

	"github.com/ralt/alpkit/internal/apkbuild"
	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewApkbuildCmd creates the apkbuild command
func NewApkbuildCmd() *cobra.Command {
	var (
		env       []string
		extraVars []string
		keepEnv   bool
		shell     string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apkbuild FILE...",
		Short: "Evaluate APKBUILD descriptors and print their metadata",
		Long: `Sources each APKBUILD in a fresh shell with a cleared environment
and prints the declared package metadata. No build function is run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Apkbuild.Env = append(cfg.Apkbuild.Env, env...)
			cfg.Apkbuild.ExtraVars = append(cfg.Apkbuild.ExtraVars, extraVars...)
			if cmd.Flags().Changed("keep-env") {
				cfg.Apkbuild.InheritEnv = keepEnv
			}
			if cmd.Flags().Changed("shell") {
				cfg.Apkbuild.Shell = shell
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Apkbuild.Timeout = timeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			reader := apkbuild.NewReader(cfg.ApkbuildConfig())
			results := make([]*models.Apkbuild, 0, len(args))
			for _, path := range args {
				logrus.Debugf("Evaluating descriptor: %s", path)
				ab, err := reader.Read(cmd.Context(), path)
				if err != nil {
					return err
				}
				logWarnings(path, ab.Warnings)
				results = append(results, ab)
			}

			if len(results) == 1 {
				return render(cmd, cfg, results[0])
			}
			return render(cmd, cfg, results)
		},
	}

	cmd.Flags().StringArrayVarP(&env, "env", "e", nil, "Set VAR=VALUE in the evaluation environment (repeatable)")
	cmd.Flags().StringArrayVar(&extraVars, "extra-var", nil, "Also capture this variable into raw (repeatable)")
	cmd.Flags().BoolVar(&keepEnv, "keep-env", false, "Inherit the caller's environment")
	cmd.Flags().StringVar(&shell, "shell", apkbuild.DefaultShell, "Shell used to source descriptors")
	cmd.Flags().DurationVar(&timeout, "timeout", apkbuild.DefaultTimeout, "Evaluation time limit (0 disables)")

	return cmd
}
