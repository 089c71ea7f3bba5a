package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fincontrol/attachd/internal/server"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attachment HTTP sidecar",
		Long: `Start the HTTP server exposing upload, delete, and signed-url
endpoints under /api/v1. The server stops cleanly on SIGINT/SIGTERM,
finishing in-flight requests first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			router := server.New(store, cfg.PresignExpiry, logger)
			srv := &http.Server{
				Addr:              cfg.Address,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", cfg.Address).
					Str("bucket", cfg.Storage.Bucket).
					Int("presignExpiry", cfg.PresignExpiry).
					Msg("attachd listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-GetContext().Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config, default :8086)")

	return cmd
}
