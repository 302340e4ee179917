// Package tracer configures OpenTelemetry tracing for the tenant API.
//
// The database core starts a span per retry attempt ("postgres.attempt") on
// the trace.Tracer this package provides. With export disabled the tracer is
// a no-op and costs nothing.
package tracer
