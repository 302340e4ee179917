package auditlog

import (
	"time"

	"github.com/tenantdesk/platform/v1/postgres"
)

const (
	// DefaultQueueSize bounds how many events wait for the worker.
	DefaultQueueSize = 1024

	// DefaultFailureThreshold is the number of consecutive connection failures that pauses persistence.
	DefaultFailureThreshold = 3

	// DefaultPauseWindow is how long persistence stays paused after a trip.
	DefaultPauseWindow = 30 * time.Second

	DefaultTableName  = "system_logs"
	DefaultUsersTable = "users"
)

// DefaultRetryPolicy is tighter than postgres.DefaultRetryPolicy so a
// struggling database is not kept busy by log writes.
var DefaultRetryPolicy = postgres.RetryPolicy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond}

// Config tunes the sink. Zero values fall back to the defaults above.
type Config struct {
	QueueSize        int                  `mapstructure:"queue_size"`
	FailureThreshold int                  `mapstructure:"failure_threshold"`
	PauseWindow      time.Duration        `mapstructure:"pause_window"`
	Retry            postgres.RetryPolicy `mapstructure:"-"`

	// TableName receives the entries; it is created by migrations outside this module.
	TableName string `mapstructure:"table_name"`

	// UsersTable is checked for the event's user id before insert.
	UsersTable string `mapstructure:"users_table"`
}

func (cfg Config) withDefaults() Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.PauseWindow <= 0 {
		cfg.PauseWindow = DefaultPauseWindow
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.UsersTable == "" {
		cfg.UsersTable = DefaultUsersTable
	}
	return cfg
}
