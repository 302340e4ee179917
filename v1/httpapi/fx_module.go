package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"github.com/tenantdesk/platform/v1/auditlog"
	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/metrics"
	"github.com/tenantdesk/platform/v1/postgres"
)

// FXModule provides the router and the *Server and runs it for the
// application's lifetime. Include it after auditlog.FXModule so requests
// stop before the sink drains.
var FXModule = fx.Module("httpapi",
	fx.Provide(
		NewRouterWithDI,
		NewServerWithDI,
	),
	fx.Invoke(RegisterServerLifecycle),
)

// RouterParams groups the router's dependencies. Sink and Metrics are optional.
type RouterParams struct {
	fx.In

	Client  postgres.Client
	Logger  logger.Logger
	Sink    *auditlog.Sink   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Mounts  []Mount          `group:"routes"`
}

// Mount is a business router contributed to the "routes" group.
type Mount struct {
	Pattern string
	Handler http.Handler
}

// NewRouterWithDI builds the API handler from injected dependencies.
func NewRouterWithDI(params RouterParams) http.Handler {
	var opts []RouterOption
	if params.Sink != nil {
		opts = append(opts, WithRecorder(params.Sink))
	}
	if params.Metrics != nil {
		opts = append(opts, WithRequestMetrics(params.Metrics))
	}
	for _, m := range params.Mounts {
		opts = append(opts, WithMount(m.Pattern, m.Handler))
	}
	return NewRouter(params.Client, params.Logger, opts...)
}

func NewServerWithDI(cfg Config, handler http.Handler, log logger.Logger) *Server {
	return NewServer(cfg, handler, log)
}

// RegisterServerLifecycle starts the listener on start and drains it on stop.
func RegisterServerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
