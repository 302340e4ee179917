package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/postgres"
)

// stubClient reports a fixed connection check result.
type stubClient struct {
	healthy bool
}

func (c stubClient) Acquire(ctx context.Context) (*postgres.Handle, error) {
	return nil, postgres.ErrClosed
}

func (c stubClient) Reconnect(ctx context.Context) (*postgres.Handle, error) {
	return nil, postgres.ErrClosed
}

func (c stubClient) CheckConnection(ctx context.Context) bool { return c.healthy }
func (c stubClient) Sync() postgres.SyncClient                { return postgres.SyncClient{} }
func (c stubClient) State() postgres.State                    { return postgres.StateUninitialized }
func (c stubClient) LastHealthyAt() time.Time                 { return time.Time{} }
func (c stubClient) GracefulShutdown() error                  { return nil }

func newSinkApp(t *testing.T, healthy bool, sink **Sink) *fxtest.App {
	client := stubClient{healthy: healthy}
	return fxtest.New(t,
		fx.Provide(
			func() Config { return Config{} },
			func() logger.Logger { return logger.NewNop() },
			func() postgres.Client { return client },
			func() *postgres.Executor { return postgres.NewExecutor(client) },
		),
		FXModule,
		fx.Populate(sink),
	)
}

func TestFXModuleEnablesWhenDatabaseReachable(t *testing.T) {
	var sink *Sink
	app := newSinkApp(t, true, &sink)
	app.RequireStart()

	assert.True(t, sink.State().Enabled)
	app.RequireStop()
}

func TestFXModuleStaysDisabledWhenDatabaseUnreachable(t *testing.T) {
	var sink *Sink
	app := newSinkApp(t, false, &sink)
	app.RequireStart()

	assert.False(t, sink.State().Enabled)
	app.RequireStop()
}
