// Package prometheus provides Prometheus collectors for authshift metrics.
//
// [NewPrometheusExporter] accepts an [authshift.Engine] and exposes an [http.Handler]
// that renders all authshift counters and histograms in Prometheus text exposition
// format. Counter names are prefixed authshift_*_total; the histograms are
// authshift_resolve_latency_seconds and authshift_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
