// Package otel publishes portal metrics through OpenTelemetry asynchronous
// instruments: an Int64ObservableCounter per counter, and a gauge per
// cumulative bucket (plus count and sum) for the latency histogram.
//
// The caller owns the MeterProvider and passes in a Meter.
package otel
