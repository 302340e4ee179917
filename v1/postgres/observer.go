package postgres

import (
	"time"

	"github.com/tenantdesk/platform/v1/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
func (s *Supervisor) observeOperation(operation string, duration time.Duration, err error) {
	if s == nil || s.observer == nil {
		return
	}

	s.observer.ObserveOperation(observability.OperationContext{
		Component: "postgres",
		Operation: operation,
		Duration:  duration,
		Error:     err,
	})
}
