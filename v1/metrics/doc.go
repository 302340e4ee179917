// Package metrics provides Prometheus-based monitoring for the tenant API.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - MetricsCollector interface: the contract for metrics operations
//   - Metrics struct: concrete implementation backed by an isolated registry
//   - NewMetrics constructor: returns *Metrics
//   - FXModule: provides *Metrics and observability.Observer
//
// Core Features:
//   - db_operations_total / db_operation_duration_seconds fed by the
//     postgres and auditlog packages through observability.Observer
//   - http_requests_total / http_request_duration_seconds fed by httpapi
//   - Optional Go runtime and process collectors
//   - A constant service label on every metric
//
// # Direct Usage (Without FX)
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "tenant-api"})
//	sup, _ := postgres.NewSupervisor(cfg, postgres.WithObserver(m))
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule,
//		fx.Provide(func() metrics.Config {
//			return metrics.Config{Address: ":9090", Enabled: true, ServiceName: "tenant-api"}
//		}),
//	)
//
// Access metrics at: http://localhost:9090/metrics
package metrics
