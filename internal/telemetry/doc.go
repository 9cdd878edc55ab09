// Package telemetry exports reactive runtime and binding tree counters to
// Prometheus and resolves the OpenTelemetry tracer used for frame spans.
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	rt := reactive.New(reactive.WithMetrics(m))
//	tree := binding.NewTree(rt, binding.WithMetrics(m))
//
// The same Metrics value satisfies reactive.Metrics and binding.Metrics.
package telemetry
