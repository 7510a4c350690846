// Package instrumentation provides OpenTelemetry metrics and tracing for gmailurl.
//
// Instrumentation is off by default, since gmailurl usually runs as a
// one-shot forensic tool. When enabled it records:
//
//   - gmailurl_matches_total: URLs matched, by source and mode
//   - gmailurl_records_total: records emitted, by source
//   - gmailurl_token_corrections_total: raw-data token repairs, by field
//   - gmailurl_decode_failures_total: new-format tokens that did not decode, by field
//   - gmailurl_scan_duration_seconds: wall time of a scan, by source and status
//
// Each scan also runs inside a "scan.<source>" span.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: gmailurl)
//   - METRICS_TEXTFILE: Write Prometheus metrics to this file on shutdown
//
// The prometheus exporter has no HTTP endpoint; its registry is written in
// the text exposition format to METRICS_TEXTFILE (or --metrics-file) when the
// provider shuts down, for pickup by a node_exporter textfile collector.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordMatch(ctx, "raw", "both")
package instrumentation
