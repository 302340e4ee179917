package logger

// Logger is the logging contract every package in this module depends on.
// Each method takes a message, an optional error and optional structured field maps.
//
//go:generate mockgen -source=interface.go -destination=mock_logger.go -package=logger
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

var _ Logger = (*LoggerClient)(nil)
