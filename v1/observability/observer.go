// Package observability defines the hook through which packages report
// completed operations to metrics or tracing backends.
//
// Packages accept an optional Observer; a nil Observer disables reporting.
// The metrics package provides a Prometheus-backed implementation.
package observability

import "time"

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "postgres" or "auditlog".
	Component string

	// Operation is the action that ran, e.g. "connect", "attempt", "persist".
	Operation string

	// Resource is the primary object touched, e.g. a table name.
	Resource string

	// SubResource carries extra context such as an outcome or error class.
	SubResource string

	Duration time.Duration
	Error    error
	Size     int64
	Metadata map[string]interface{}
}

// Observer receives OperationContext values. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

// Status maps an operation error to the "status" label value used by metrics.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
