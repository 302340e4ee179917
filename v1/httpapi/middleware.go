package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tenantdesk/platform/v1/auditlog"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID keeps a valid incoming X-Request-ID or assigns a new UUID, echoes
// it on the response and stores it where middleware.GetReqID finds it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recorder accepts audit events. *auditlog.Sink implements it.
type Recorder interface {
	Record(ev auditlog.Event)
}

// RequestMetrics records per-route request counts and latency. *metrics.Metrics implements it.
type RequestMetrics interface {
	IncrementRequests(route, status string)
	RecordRequestDuration(start time.Time, route string)
}

// Audit records one event per request after the handler returns. Paths in
// skip are not recorded.
func Audit(rec Recorder, skip map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			rec.Record(auditlog.Event{
				ScreenName:     "http",
				CallerFunction: r.Method + " " + route,
				LogType:        logTypeFor(status),
				Message:        fmt.Sprintf("%s %s %d", r.Method, r.URL.Path, status),
				Metadata: map[string]interface{}{
					"request_id":  middleware.GetReqID(r.Context()),
					"status":      status,
					"duration_ms": time.Since(start).Milliseconds(),
					"bytes":       ww.BytesWritten(),
				},
			})
		})
	}
}

// Instrument reports each request to m under its route pattern.
func Instrument(m RequestMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			m.IncrementRequests(route, strconv.Itoa(status))
			m.RecordRequestDuration(start, route)
		})
	}
}

func logTypeFor(status int) auditlog.LogType {
	switch {
	case status >= 500:
		return auditlog.Error
	case status >= 400:
		return auditlog.Warning
	default:
		return auditlog.Success
	}
}

// routePattern is only complete after the router has served r.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
