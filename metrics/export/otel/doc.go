// Package otel bridges digivahan engine metrics into an OpenTelemetry
// meter using observable instruments. Counters are observed on collection
// from the engine snapshot; nothing is pushed.
//
// # What this package must NOT do
//
//   - Own a MeterProvider; callers pass the meter.
//   - Mutate engine state.
package otel
