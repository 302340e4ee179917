// Package httpapi is the HTTP edge of the tenant API: a chi router with
// request ids, per-request audit events, Prometheus request metrics and the
// /healthz and /readyz probes. Business routers are mounted into it.
//
// WriteError is the shared way to turn a database error into a response.
// Connection failures that survived every retry surface as a generic 500.
package httpapi
