package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/config"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/logging"
	"github.com/dotstake/indexer/internal/supervisor"
)

func newRunCmd() *cobra.Command {
	var logLevel string
	var jsonLogs bool
	var logFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the indexer process for the configured chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: logLevel, JSON: jsonLogs, FilePath: logFile})
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			sup, err := supervisor.New(cfg, logger)
			if err != nil {
				return err
			}
			defer sup.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("indexer starting", zap.String("chain", string(cfg.Chain)), zap.String("database", cfg.DatabasePath))
			if err := sup.Run(ctx); err != nil {
				if errs.IsFatal(err) {
					logger.Error("fatal error, exiting", zap.Error(err))
				}
				return err
			}
			logger.Info("indexer shut down cleanly")
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().BoolVar(&jsonLogs, "log-json", false, "emit structured JSON logs instead of console output")
	cmd.Flags().StringVar(&logFile, "log-file", "", "additionally write logs to this rotating file")

	return cmd
}
