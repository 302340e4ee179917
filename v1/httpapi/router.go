package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/postgres"
)

// Health probe paths. They are not audited.
const (
	HealthPath = "/healthz"
	ReadyPath  = "/readyz"
)

// RouterOption configures the router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	recorder    Recorder
	metrics     RequestMetrics
	middlewares []func(http.Handler) http.Handler
	mounts      map[string]http.Handler
}

// WithRecorder audits every non-probe request through rec.
func WithRecorder(rec Recorder) RouterOption {
	return func(cfg *routerConfig) {
		cfg.recorder = rec
	}
}

// WithRequestMetrics reports request counts and latency to m.
func WithRequestMetrics(m RequestMetrics) RouterOption {
	return func(cfg *routerConfig) {
		cfg.metrics = m
	}
}

// WithMiddlewares appends middleware after the built-in chain.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMount mounts a business router under pattern.
func WithMount(pattern string, h http.Handler) RouterOption {
	return func(cfg *routerConfig) {
		cfg.mounts[pattern] = h
	}
}

// NewRouter builds the API router with request ids, panic recovery, optional
// auditing and metrics, and the health probes.
func NewRouter(client postgres.Client, log logger.Logger, opts ...RouterOption) *chi.Mux {
	cfg := &routerConfig{mounts: map[string]http.Handler{}}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	if cfg.metrics != nil {
		r.Use(Instrument(cfg.metrics))
	}
	if cfg.recorder != nil {
		r.Use(Audit(cfg.recorder, map[string]struct{}{HealthPath: {}, ReadyPath: {}}))
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	h := &healthHandler{client: client, log: log}
	r.Get(HealthPath, h.health)
	r.Get(ReadyPath, h.ready)

	for pattern, handler := range cfg.mounts {
		r.Mount(pattern, handler)
	}
	return r
}

type healthHandler struct {
	client postgres.Client
	log    logger.Logger
}

// health runs a real connection check.
func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"state": h.client.State().String(),
	}
	if last := h.client.LastHealthyAt(); !last.IsZero() {
		body["last_healthy_at"] = last.UTC().Format(time.RFC3339)
	}

	if !h.client.CheckConnection(r.Context()) {
		body["status"] = "unavailable"
		WriteJSON(w, body, http.StatusServiceUnavailable)
		return
	}
	body["status"] = "ok"
	WriteJSON(w, body, http.StatusOK)
}

// ready reports the supervisor state without touching the network.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	state := h.client.State()
	if state != postgres.StateReady {
		WriteJSON(w, map[string]string{"status": state.String()}, http.StatusServiceUnavailable)
		return
	}
	WriteJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}
