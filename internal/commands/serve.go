package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/anime-shed/bookcapture-go/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port     string
		maxConns int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture API server",
		Example: `  # Start on the configured port
  bookcapture serve

  # Override the port and cap concurrent connections
  bookcapture serve --port 3000 --max-conns 256`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if port != "" {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			c, err := opts.container()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go c.Sessions().Run(ctx)

			ln, err := net.Listen("tcp", cfg.ServerAddress())
			if err != nil {
				return err
			}
			if maxConns > 0 {
				ln = netutil.LimitListener(ln, maxConns)
			}

			// No WriteTimeout: /scan holds its connection for the whole scan.
			server := &http.Server{
				Handler:           c.Handler(),
				ReadHeaderTimeout: cfg.RequestTimeout,
				IdleTimeout:       2 * cfg.RequestTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.WithFields(logrus.Fields{
					"address":   cfg.ServerAddress(),
					"timeout":   cfg.RequestTimeout,
					"max_conns": maxConns,
				}).Info("Starting HTTP server")

				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down server...")
				shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stop()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.WithError(err).Error("Server forced to shutdown")
					return err
				}
				logger.Info("Server exited")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().IntVar(&maxConns, "max-conns", 0, "Maximum simultaneous connections, 0 for no limit")

	return cmd
}
