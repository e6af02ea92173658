package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apix "github.com/brandguard-ai/brandguard/api"
	configx "github.com/brandguard-ai/brandguard/pkg/config"
	telemetryx "github.com/brandguard-ai/brandguard/pkg/telemetry"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Telemetry failures downgrade to plain stdout logging
			// instead of blocking startup.
			telemetryShutdown, err := telemetryx.Setup(ctx, *configx.MustNew[telemetryx.Config](""))
			if err != nil {
				log.Warn().Err(err).Msg("telemetry setup failed, continuing without exporters")
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := telemetryShutdown(flushCtx); err != nil {
					log.Warn().Err(err).Msg("flushing telemetry")
				}
			}()

			auditor, closeClients, err := buildAuditor(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeClients(); err != nil {
					log.Warn().Err(err).Msg("closing audit clients")
				}
			}()

			srv := &http.Server{
				Addr:              addr,
				Handler:           otelhttp.NewHandler(apix.NewServer(auditor), "brandguard.api"),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("audit API listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			log.Info().Msg("shutting down audit API")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address for the HTTP API")

	return cmd
}
