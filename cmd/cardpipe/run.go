package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cardpipe/internal/config"
	"cardpipe/internal/etl"
	"cardpipe/internal/logger"
	"cardpipe/internal/metrics"
	"cardpipe/internal/metrics/prompush"
	"cardpipe/internal/storage"
	"cardpipe/internal/storage/postgres"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(logLevel)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		issues := config.ValidatePipeline(cfg)
		for _, issue := range issues {
			if issue.Severity == config.SeverityError {
				log.Errorw("config issue", "path", issue.Path, "msg", issue.Message)
			} else {
				log.Warnw("config issue", "path", issue.Path, "msg", issue.Message)
			}
		}
		if config.HasErrors(issues) {
			return fmt.Errorf("configuration is invalid")
		}

		if cfg.Metrics.Backend == "pushgateway" {
			b, err := prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
			if err != nil {
				return err
			}
			metrics.SetBackend(b)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var repo storage.Repository
		if cfg.Storage.DSN != "" {
			pg, err := postgres.New(ctx, postgres.Config{
				DSN:            cfg.Storage.DSN,
				ConnectTimeout: cfg.Storage.ConnectTimeout,
			})
			if err != nil {
				return fmt.Errorf("connect storage: %w", err)
			}
			defer pg.Close()
			repo = pg
		}

		runner := etl.NewRunner(cfg, log, repo)
		sum, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		log.Infow("run complete",
			"job", cfg.Job,
			"files_clientes", sum.CustomerFiles,
			"files_tarjetas", sum.CardFiles,
			"files_ignored", sum.IgnoredFiles,
			"files_failed", sum.FailedFiles,
			"files_duplicate", sum.SkippedDuplicates,
			"rows_processed", sum.Processed,
			"parse_errors", sum.ParseErrors,
			"valid_clientes", sum.ValidCustomers,
			"valid_tarjetas", sum.ValidCards,
			"rejected_clientes", sum.RejectedCustomers,
			"rejected_tarjetas", sum.RejectedCards,
			"consolidated_tarjetas", sum.ConsolidatedCards,
			"referential_dropped", sum.ReferentialDropped,
			"loaded_clientes", sum.LoadedCustomers,
			"loaded_tarjetas", sum.LoadedCards,
		)
		return nil
	},
}
