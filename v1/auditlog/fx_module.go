package auditlog

import (
	"context"

	"go.uber.org/fx"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/observability"
	"github.com/tenantdesk/platform/v1/postgres"
)

// FXModule provides the audit *Sink.
//
// On start the worker is launched and, if the database answers a connection
// check, persistence is enabled. On stop the queue is drained. Include it
// after postgres.FXModule so the sink stops before the supervisor.
var FXModule = fx.Module("auditlog",
	fx.Provide(NewSinkWithDI),
	fx.Invoke(RegisterSinkLifecycle),
)

// SinkParams groups the dependencies needed to create a Sink.
type SinkParams struct {
	fx.In

	Config   Config
	Executor *postgres.Executor
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

// NewSinkWithDI builds a Sink over the shared executor, classifying failures
// the same way the executor does.
func NewSinkWithDI(params SinkParams) *Sink {
	return NewSink(params.Executor, params.Logger, params.Config,
		WithClassifier(params.Executor.Classifier()),
		WithObserver(params.Observer),
	)
}

// SinkLifecycleParams groups the dependencies for the sink's lifecycle hooks.
type SinkLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Sink      *Sink
	Client    postgres.Client
	Logger    logger.Logger
}

// RegisterSinkLifecycle starts the worker and enables persistence once the
// database is reachable.
func RegisterSinkLifecycle(params SinkLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Sink.Start()
			if params.Client.CheckConnection(ctx) {
				params.Sink.Enable()
				return nil
			}
			params.Logger.Warn("Database unreachable at startup, database logging stays disabled", nil, nil)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return params.Sink.Stop(ctx)
		},
	})
}
