// Package commands holds the bookcapture command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/anime-shed/bookcapture-go/internal/config"
	"github.com/anime-shed/bookcapture-go/internal/container"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bookcapture",
		Short: "Capture, crop and read book pages and barcodes",
		Long: `bookcapture turns photos of book pages into text and book barcodes into
ISBNs.

It runs as an HTTP service for browser clients (serve) or directly on local
files and camera feeds (crop, ocr, scan).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load also reads .env when present
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			logger.SetLevel(cfg.LogLevel)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newCropCmd(opts),
		newOCRCmd(opts),
		newScanCmd(opts),
	)

	return cmd
}

func (o *rootOptions) container() (*container.Container, error) {
	return container.NewContainer(o.cfg)
}
