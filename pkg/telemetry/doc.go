// Package telemetry provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for simwalk.
//
// Logging wraps zerolog: the CLI builds one root logger from configuration
// and components derive child loggers with a "component" field. Metrics
// implements the exploration engine's Observer contract, translating round,
// stash and spill events into Prometheus series. Tracing wraps the
// OpenTelemetry SDK with OTLP and stdout exporters; the manager opens one
// span per run and one per round when a tracer is configured.
package telemetry
