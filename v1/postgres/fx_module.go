package postgres

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/observability"
)

// FXModule is an fx module that provides the PostgreSQL connection core.
//
// It provides *Supervisor, *Executor and SyncClient, exposes the supervisor
// as the Client interface, and registers a stop hook that shuts the
// supervisor down. fx maps SIGINT and SIGTERM to that stop hook when the
// application is run with App.Run.
//
// The supervisor does not connect on start; the first Acquire does.
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewSupervisorWithDI,
		ProvideClient,
		NewExecutorWithDI,
		ProvideSyncClient,
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// SupervisorParams groups the dependencies needed to build a Supervisor.
// Observer is optional; without it nothing is reported.
type SupervisorParams struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

// NewSupervisorWithDI builds a Supervisor from injected dependencies.
func NewSupervisorWithDI(params SupervisorParams) (*Supervisor, error) {
	return NewSupervisor(params.Config,
		WithLogger(params.Logger),
		WithObserver(params.Observer),
	)
}

// ProvideClient exposes the concrete *Supervisor as the Client interface.
func ProvideClient(s *Supervisor) Client {
	return s
}

// ExecutorParams groups the dependencies needed to build an Executor.
// Tracer and Observer are optional.
type ExecutorParams struct {
	fx.In

	Config     Config
	Supervisor *Supervisor
	Logger     logger.Logger
	Observer   observability.Observer `optional:"true"`
	Tracer     trace.Tracer           `optional:"true"`
}

// NewExecutorWithDI builds the process-wide Executor. The classifier uses
// Config.ConnectionErrorMarkers when set.
func NewExecutorWithDI(params ExecutorParams) *Executor {
	return NewExecutor(params.Supervisor,
		WithExecutorLogger(params.Logger),
		WithExecutorClassifier(NewClassifier(params.Config.ConnectionErrorMarkers...)),
		WithExecutorObserver(params.Observer),
		WithTracer(params.Tracer),
	)
}

// ProvideSyncClient provides the synchronous accessor bound to the supervisor.
func ProvideSyncClient(s *Supervisor) SyncClient {
	return s.Sync()
}

// RegisterPostgresLifecycle shuts the supervisor down when the application stops.
func RegisterPostgresLifecycle(lc fx.Lifecycle, s *Supervisor) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.GracefulShutdown()
		},
	})
}
