package config

import (
	"go.uber.org/fx"

	"github.com/tenantdesk/platform/v1/auditlog"
	"github.com/tenantdesk/platform/v1/httpapi"
	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/metrics"
	"github.com/tenantdesk/platform/v1/postgres"
	"github.com/tenantdesk/platform/v1/tracer"
)

// FXModule provides the root *Config and the per-package configs derived
// from it. Supply a *Config to skip Load, as the tests do with fx.Supply and
// FromConfig.
var FXModule = fx.Module("config",
	fx.Provide(Load),
	derived,
)

// FromConfig provides the per-package configs of an already loaded *Config.
func FromConfig(cfg *Config) fx.Option {
	return fx.Options(fx.Supply(cfg), derived)
}

var derived = fx.Provide(
	func(c *Config) logger.Config { return c.LoggerConfig() },
	func(c *Config) postgres.Config { return c.PostgresConfig() },
	func(c *Config) auditlog.Config { return c.AuditConfig() },
	func(c *Config) metrics.Config { return c.MetricsConfig() },
	func(c *Config) tracer.Config { return c.TracerConfig() },
	func(c *Config) httpapi.Config { return c.HTTPConfig() },
)
