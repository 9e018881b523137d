// Package prometheus renders digivahan engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [digivahan.Engine] and exposes an
// [http.Handler] that serves all counters and histograms. Counter names
// are prefixed digivahan_*_total; the single histogram is
// digivahan_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the
//     Handler themselves.
//   - Mutate engine state.
package prometheus
