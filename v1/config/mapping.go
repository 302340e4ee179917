package config

import (
	"github.com/tenantdesk/platform/v1/auditlog"
	"github.com/tenantdesk/platform/v1/httpapi"
	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/metrics"
	"github.com/tenantdesk/platform/v1/postgres"
	"github.com/tenantdesk/platform/v1/tracer"
)

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.LogLevel, ServiceName: c.ServiceName}
}

func (c *Config) PostgresConfig() postgres.Config {
	return postgres.Config{
		URL: c.Database.URL,
		ConnectionDetails: postgres.ConnectionDetails{
			PoolSize:          c.Database.PoolSize,
			PoolTimeout:       c.Database.PoolTimeout,
			ConnectTimeout:    c.Database.ConnectTimeout,
			KeepAliveInterval: c.Database.KeepAliveInterval,
		},
		ConnectionErrorMarkers: c.Database.ErrorMarkers,
	}
}

func (c *Config) AuditConfig() auditlog.Config {
	return auditlog.Config{
		QueueSize:        c.Audit.QueueSize,
		FailureThreshold: c.Audit.FailureThreshold,
		PauseWindow:      c.Audit.PauseWindow,
	}
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Address:                 c.Metrics.Address,
		Enabled:                 c.Metrics.Enabled,
		EnableDefaultCollectors: true,
		ServiceName:             c.ServiceName,
	}
}

func (c *Config) TracerConfig() tracer.Config {
	return tracer.Config{
		Enabled:     c.Tracing.Enabled,
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		ServiceName: c.ServiceName,
	}
}

func (c *Config) HTTPConfig() httpapi.Config {
	return httpapi.Config{
		Address:         c.HTTP.Address,
		ShutdownTimeout: c.HTTP.ShutdownTimeout,
	}
}
