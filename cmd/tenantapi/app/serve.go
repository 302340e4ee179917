package app

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/tenantdesk/platform/v1/auditlog"
	"github.com/tenantdesk/platform/v1/config"
	"github.com/tenantdesk/platform/v1/httpapi"
	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/metrics"
	"github.com/tenantdesk/platform/v1/postgres"
	"github.com/tenantdesk/platform/v1/tracer"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the API server and run until SIGINT or SIGTERM.

The database connection is opened lazily and shared by every subsystem.
On shutdown the HTTP listener drains first, then the audit log queue,
then the database connection is closed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fx.New(Modules(cfg)).Run()
			return nil
		},
	}
}

// Modules assembles the application. Order matters for shutdown: fx stops
// modules in reverse, so the HTTP server stops before the sink and the sink
// before the database.
func Modules(cfg *config.Config) fx.Option {
	return fx.Options(
		config.FromConfig(cfg),
		logger.FXModule,
		fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Zap}
		}),
		metrics.FXModule,
		tracer.FXModule,
		postgres.FXModule,
		auditlog.FXModule,
		httpapi.FXModule,
		fx.Invoke(reportStartup),
	)
}

// reportStartup logs the seeding flag. Seeding itself runs outside this binary.
func reportStartup(log logger.Logger, cfg *config.Config) {
	log.Info("Tenant API configured", nil, map[string]interface{}{
		"service":   cfg.ServiceName,
		"auto_seed": cfg.AutoSeed,
		"http":      cfg.HTTP.Address,
	})
}
