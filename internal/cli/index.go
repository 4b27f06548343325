package cli

import (
	"fmt"
	"path/filepath"

	"github.com/ralt/alpkit/internal/models"
	"github.com/ralt/alpkit/internal/output"
	"github.com/ralt/alpkit/internal/scanner"
	"github.com/ralt/alpkit/internal/signer"
	"github.com/ralt/alpkit/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type indexOptions struct {
	outputPath    string
	description   string
	rsaKeyPath    string
	rsaPassphrase string
	keyName       string
	sha256        bool
}

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index DIR",
		Short: "Build an APKINDEX.tar.gz from the packages under a directory",
		Long: `Scans a directory for .apk containers and writes an APKINDEX.tar.gz
describing them, optionally signed with an abuild RSA key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// The index only needs control metadata.
			cfg.Apk.SkipFiles = true

			var rsaSigner signer.RSASigner
			if opts.rsaKeyPath != "" {
				s, err := signer.NewAlpineRSASigner(opts.rsaKeyPath, opts.rsaPassphrase, opts.sha256)
				if err != nil {
					return models.WithPath(models.NewError(models.ErrSigning,
						fmt.Errorf("failed to initialize RSA signer: %w", err)), opts.rsaKeyPath)
				}
				rsaSigner = s
				if opts.keyName == "" {
					opts.keyName = filepath.Base(opts.rsaKeyPath) + ".pub"
				}
				logrus.Info("RSA signer initialized")
			}

			results, err := runScan(cmd.Context(), cfg, args[0], scanner.TypeApk)
			if err != nil {
				return err
			}
			pkgs := scannedPackages(results)
			logrus.Infof("Indexing %d packages", len(pkgs))

			data, err := output.IndexArchive(opts.description, pkgs, rsaSigner, opts.keyName)
			if err != nil {
				return fmt.Errorf("failed to build index: %w", err)
			}
			if err := utils.WriteFile(opts.outputPath, data, 0644); err != nil {
				return models.WithPath(models.NewError(models.ErrFileOp, err), opts.outputPath)
			}

			logrus.Infof("Wrote %s", opts.outputPath)

			if rsaSigner != nil {
				// Publish the public key next to the index, as apk expects
				// it under /etc/apk/keys/<key-name>.
				pub, err := rsaSigner.GetPublicKey()
				if err != nil {
					return models.NewError(models.ErrSigning, err)
				}
				pubPath := filepath.Join(filepath.Dir(opts.outputPath), opts.keyName)
				if err := utils.WriteFile(pubPath, pub, 0644); err != nil {
					return models.WithPath(models.NewError(models.ErrFileOp, err), pubPath)
				}
				logrus.Infof("Wrote %s", pubPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "APKINDEX.tar.gz", "Output file")
	cmd.Flags().StringVar(&opts.description, "description", "", "Repository description")
	cmd.Flags().StringVar(&opts.rsaKeyPath, "rsa-key", "", "Path to RSA private key")
	cmd.Flags().StringVar(&opts.rsaPassphrase, "rsa-passphrase", "", "RSA key passphrase")
	cmd.Flags().StringVar(&opts.keyName, "key-name", "", "Key name for the signature (default: <rsa-key>.pub)")
	cmd.Flags().BoolVar(&opts.sha256, "sha256", false, "Sign with RSA/SHA-256 (RSA256)")

	return cmd
}
