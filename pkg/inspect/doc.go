// Package inspect serves a read-only view of a store over HTTP.
//
// Routes:
//
//	GET /healthz     liveness probe
//	GET /keys        every stored key with its value and dependent count
//	GET /keys/{key}  one key (path-escaped), 404 if absent
//	GET /metrics     Prometheus metrics
//	GET /ws          WebSocket stream of store events as JSON
//
// The inspector never writes to the store.
//
// Usage:
//
//	st := store.New(store.WithMetrics(store.WithRegistry(reg)))
//	insp := inspect.New(st, inspect.WithGatherer(reg))
//	http.ListenAndServe("localhost:7070", insp)
package inspect
