// Package middleware provides HTTP middleware for the store inspector.
//
// This package includes:
//   - OpenTelemetry tracing of every request
//   - Prometheus request metrics
//   - Panic recovery with structured logging
//
// # OpenTelemetry Middleware
//
// OpenTelemetry starts a server span per request, named after the matched
// chi route pattern. The span's context replaces the request context, so
// handlers that call into the store continue the trace.
//
//	handler := inspect.New(st, inspect.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	))
//
// # Prometheus Metrics
//
// Prometheus records:
//   - templatestore_http_requests_total: requests by route, method and status
//   - templatestore_http_request_duration_seconds: request latency by route
//   - templatestore_http_requests_in_flight: requests currently served
//
// Metrics are registered once per registry; calling Prometheus again with
// the same registry reuses the existing collectors.
//
// # Recovery
//
// Recover turns a handler panic into a 500 response and logs it with the
// request method and path.
package middleware
