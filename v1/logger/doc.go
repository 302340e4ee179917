// Package logger provides structured logging for the tenant API processes.
//
// The package wraps Uber's zap behind a small Logger interface so that the
// database core, the audit sink and the HTTP surface can be tested with a
// mock or a no-op logger.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - Logger interface: the contract other packages depend on
//   - LoggerClient struct: zap-backed implementation
//   - NewLoggerClient constructor: returns *LoggerClient
//   - FXModule: provides both *LoggerClient and Logger
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:       logger.Info,
//		ServiceName: "tenant-api",
//	})
//
//	log.Info("User logged in", nil, map[string]interface{}{
//		"user_id": 12345,
//	})
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config {
//			return logger.Config{Level: logger.Debug, ServiceName: "tenant-api"}
//		}),
//	)
//
// # Logging Levels
//
//	log.Debug("Debug message", nil, nil) // Only appears if level is Debug
//	log.Info("Info message", nil, nil)
//	log.Warn("Warning message", nil, nil)
//	log.Error("Error message", err, nil)
//
// # Configuration
//
// The level is read from LOG_LEVEL (debug, info, warning, error) by the
// config package. Unknown values fall back to info.
//
// # Thread Safety
//
// All methods on the Logger interface are safe for concurrent use by multiple
// goroutines.
package logger
