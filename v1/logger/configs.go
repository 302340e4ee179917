package logger

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the level and identity of the process logger.
type Config struct {
	// Level is one of Debug, Info, Warning, Error. Anything else falls back to Info.
	Level string `mapstructure:"log_level"`

	// ServiceName is attached to every entry as the "service" field.
	ServiceName string `mapstructure:"service_name"`
}
