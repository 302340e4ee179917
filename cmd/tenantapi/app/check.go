package app

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/postgres"
)

// ErrCheckFailed is returned by the check command when the database does not answer.
var ErrCheckFailed = errors.New("database connection check failed")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the database is reachable and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.NewLoggerClient(cfg.LoggerConfig())
			defer func() { _ = log.Zap.Sync() }()

			sup, err := postgres.NewSupervisor(cfg.PostgresConfig(), postgres.WithLogger(log))
			if err != nil {
				return err
			}
			defer func() { _ = sup.GracefulShutdown() }()

			return runCheck(cmd.Context(), sup, log)
		},
	}
}

func runCheck(ctx context.Context, client postgres.Client, log logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !client.CheckConnection(ctx) {
		return ErrCheckFailed
	}
	log.Info("Database connection check passed", nil, nil)
	return nil
}
