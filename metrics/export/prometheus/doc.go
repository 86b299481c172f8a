// Package prometheus exposes SignX engine metrics to Prometheus.
//
// [NewPrometheusExporter] wraps a [signx.Engine] in a prometheus.Collector that is
// registered in a private registry. Mount [PrometheusExporter.Handler], or register the
// exporter in your own registry. Counter names are signx_*_total; the single histogram
// is signx_poll_attempt_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
