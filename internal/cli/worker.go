package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spendview/internal/amqp"
	"spendview/internal/backend"
	"spendview/internal/log"
	"spendview/internal/services"
	"spendview/internal/storage"
	"spendview/internal/worker"
)

var errNoAPIToken = errors.New("API_TOKEN is required to replicate expenses")

func newWorkerCommand() *cobra.Command {
	var (
		retryFailed bool
		maxRetries  int
	)
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Replicate expenses saved in the sqlite store to the remote API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.APIToken == "" {
				return errNoAPIToken
			}
			logger, err := SetupLogger(cfg, log.ComponentWorker)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			ctx, cancel := SignalContext(cmd.Context(), logger)
			defer cancel()

			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, loc, logger)
			if err != nil {
				return fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
			}
			defer repo.Close()

			if retryFailed {
				n, err := repo.RetryFailed(ctx)
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "Requeued failed expenses", log.FieldCount, n)
			}
			if stats, err := repo.SyncStats(ctx); err == nil {
				logger.InfoContext(ctx, "Sync backlog",
					"pending", stats.Pending, "synced", stats.Synced, "failed", stats.Error, "deleted", stats.Deleted)
			}

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			remote, err := backend.NewAPIClient(bcfg, logger)
			if err != nil {
				return fmt.Errorf("initialize API client: %w", err)
			}

			pcfg := services.DefaultSyncProcessorConfig()
			pcfg.PollInterval = cfg.SyncInterval
			pcfg.BatchSize = cfg.SyncBatchSize
			if maxRetries > 0 {
				pcfg.MaxRetries = maxRetries
			}
			processor := services.NewSyncProcessor(repo, remote, pcfg, logger)

			// Without a broker the worker only polls.
			var consumer worker.Consumer
			if cfg.AMQPURL != "" {
				client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
				if err != nil {
					return fmt.Errorf("initialize AMQP client: %w", err)
				}
				defer client.Close()
				consumer = client
			}

			logger.InfoContext(ctx, "Starting spendview worker",
				"db_path", cfg.SQLiteDBPath,
				"poll_interval", pcfg.PollInterval,
				"amqp_enabled", consumer != nil)
			if err := worker.NewSyncWorker(processor, logger).Run(ctx, consumer); err != nil {
				return fmt.Errorf("worker: %w", err)
			}
			logger.Info("Worker shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "move expenses that exhausted their retries back to pending")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "failed pushes before an expense is parked (default 3)")
	return cmd
}
