package config

import "time"

// Config is the process configuration. Every key maps to an environment
// variable by upper-casing it and replacing "." with "_", so database.url is
// read from DATABASE_URL.
type Config struct {
	ServiceName string `mapstructure:"service_name" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warning error"`

	// AutoSeed is passed through to the seeding job; this module only reports it.
	AutoSeed bool `mapstructure:"auto_seed"`

	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type DatabaseConfig struct {
	URL               string        `mapstructure:"url" validate:"required"`
	PoolSize          int           `mapstructure:"pool_size" validate:"gte=1,lte=100"`
	PoolTimeout       time.Duration `mapstructure:"pool_timeout" validate:"gt=0"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	KeepAliveInterval time.Duration `mapstructure:"keepalive_interval" validate:"gt=0"`

	// ErrorMarkers replaces the default connection error markers when set.
	ErrorMarkers []string `mapstructure:"error_markers"`
}

type HTTPConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type AuditConfig struct {
	QueueSize        int           `mapstructure:"queue_size" validate:"gte=1"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gte=1"`
	PauseWindow      time.Duration `mapstructure:"pause_window" validate:"gt=0"`
}

// defaults are applied before the environment is read.
var defaults = map[string]interface{}{
	"service_name": "tenant-api",
	"log_level":    "info",
	"auto_seed":    false,

	"database.url":                "",
	"database.pool_size":          3,
	"database.pool_timeout":       "10s",
	"database.connect_timeout":    "10s",
	"database.keepalive_interval": "15s",
	"database.error_markers":      []string{},

	"http.address":          ":8080",
	"http.shutdown_timeout": "10s",

	"metrics.enabled": true,
	"metrics.address": ":9090",

	"tracing.enabled":  false,
	"tracing.endpoint": "",
	"tracing.insecure": true,

	"audit.queue_size":        1024,
	"audit.failure_threshold": 3,
	"audit.pause_window":      "30s",
}
