// Package otel publishes goSession Manager metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per histogram bucket. One callback reads
// [goSession.Manager.MetricsSnapshot] on each collection cycle. Callers own
// the MeterProvider.
package otel
