package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("config: invalid configuration")

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads the configuration through v. Callers may point v at a file
// or bind flags before calling; environment variables take precedence over
// file values.
func LoadFrom(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags. The error lists every failed
// field by its environment variable name.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", envName(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// envName turns a validator namespace such as "Config.Database.URL" into the
// variable the value came from, "DATABASE_URL".
func envName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = fieldKeys[p]
		if parts[i] == "" {
			parts[i] = p
		}
	}
	return strings.ToUpper(strings.Join(parts, "_"))
}

// fieldKeys maps Go field names to their mapstructure keys where they differ
// beyond case.
var fieldKeys = map[string]string{
	"ServiceName":       "service_name",
	"LogLevel":          "log_level",
	"AutoSeed":          "auto_seed",
	"PoolSize":          "pool_size",
	"PoolTimeout":       "pool_timeout",
	"ConnectTimeout":    "connect_timeout",
	"KeepAliveInterval": "keepalive_interval",
	"ErrorMarkers":      "error_markers",
	"ShutdownTimeout":   "shutdown_timeout",
	"QueueSize":         "queue_size",
	"FailureThreshold":  "failure_threshold",
	"PauseWindow":       "pause_window",
}
