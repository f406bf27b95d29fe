package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"spendview/internal/backend"
	apphttp "spendview/internal/http"
	"spendview/internal/log"
	"spendview/internal/viewmodel"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON views and CRUD endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := SetupLogger(cfg, log.ComponentApp)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			lang, err := cfg.Language()
			if err != nil {
				return err
			}

			ctx, cancel := SignalContext(cmd.Context(), logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return fmt.Errorf("create %s backend: %w", bcfg.Type, err)
			}
			defer func() {
				if err := res.Close(); err != nil {
					logger.Warn("Backend cleanup failed", log.FieldError, err)
				}
			}()

			srv := apphttp.NewServer(apphttp.Options{
				Addr:               ":" + cfg.Port,
				Backend:            res.Backend,
				Auth:               res.Auth,
				Location:           loc,
				Sorter:             viewmodel.Sorter{Lang: lang},
				PageSize:           cfg.PageSize,
				UpstreamTimeout:    cfg.UpstreamTimeout,
				SnapshotTTL:        cfg.SnapshotTTL,
				SnapshotCacheSize:  cfg.SnapshotCacheSize,
				RateLimitPerMinute: cfg.RateLimitPerMinute,
				Logger:             logger,
			})

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting spendview server", "port", cfg.Port, "backend", res.Type)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown error", log.FieldError, err)
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
}
