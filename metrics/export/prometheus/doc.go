// Package prometheus exposes goSession Manager metrics through a
// client_golang [Collector].
//
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_open_latency_seconds. Register the collector on your own registry
// or mount [Collector.Handler].
package prometheus
