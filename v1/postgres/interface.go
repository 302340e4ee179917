package postgres

import (
	"context"
	"time"
)

// Client is the connection surface other packages depend on.
// *Supervisor implements it; handlers and services should accept Client so
// tests can substitute it.
type Client interface {
	ConnectionSource

	// CheckConnection acquires the handle and runs a liveness statement.
	CheckConnection(ctx context.Context) bool

	// Sync returns the accessor for call sites that cannot wait for initialization.
	Sync() SyncClient

	State() State
	LastHealthyAt() time.Time

	// GracefulShutdown closes the live handle. Safe to call more than once.
	GracefulShutdown() error
}

var _ Client = (*Supervisor)(nil)
