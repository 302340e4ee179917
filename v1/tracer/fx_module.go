package tracer

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// FXModule provides *Tracer and the trace.Tracer consumed by the postgres
// executor, and flushes spans on shutdown.
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
		ProvideTracer,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// ProvideTracer exposes the underlying trace.Tracer.
func ProvideTracer(t *Tracer) trace.Tracer {
	return t.Tracer()
}

// RegisterTracerLifecycle registers the shutdown hook that flushes pending spans.
func RegisterTracerLifecycle(lc fx.Lifecycle, t *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return t.Shutdown(ctx)
		},
	})
}
