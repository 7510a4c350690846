package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metric attribute keys
const (
	attrSource = "source"
	attrMode   = "mode"
	attrField  = "field"
	attrStatus = "status"
)

// Metrics provides methods for recording scan metrics. The zero value is a
// no-op recorder.
type Metrics struct {
	matchesTotal     metric.Int64Counter
	recordsTotal     metric.Int64Counter
	correctionsTotal metric.Int64Counter
	decodeFailures   metric.Int64Counter
	scanDuration     metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.matchesTotal, err = meter.Int64Counter(
		"gmailurl_matches_total",
		metric.WithDescription("Total number of Gmail URLs matched"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmailurl_matches_total counter: %w", err)
	}

	m.recordsTotal, err = meter.Int64Counter(
		"gmailurl_records_total",
		metric.WithDescription("Total number of records emitted"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmailurl_records_total counter: %w", err)
	}

	m.correctionsTotal, err = meter.Int64Counter(
		"gmailurl_token_corrections_total",
		metric.WithDescription("Total number of tokens repaired while scanning raw data"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmailurl_token_corrections_total counter: %w", err)
	}

	m.decodeFailures, err = meter.Int64Counter(
		"gmailurl_decode_failures_total",
		metric.WithDescription("Total number of new-format tokens that could not be decoded"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmailurl_decode_failures_total counter: %w", err)
	}

	m.scanDuration, err = meter.Float64Histogram(
		"gmailurl_scan_duration_seconds",
		metric.WithDescription("Scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0, 600.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmailurl_scan_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordMatch records one matched URL.
//
// Parameters:
//   - source: input format ("text" or "raw")
//   - mode: grammar mode ("legacy", "new" or "both")
func (m *Metrics) RecordMatch(ctx context.Context, source, mode string) {
	if m.matchesTotal == nil {
		return
	}

	m.matchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrMode, mode),
	))
}

// RecordRecord records one emitted record.
func (m *Metrics) RecordRecord(ctx context.Context, source string) {
	if m.recordsTotal == nil {
		return
	}

	m.recordsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordScan records the duration of a finished scan.
// Status should be one of: "success", "error"
func (m *Metrics) RecordScan(ctx context.Context, source, status string, duration time.Duration) {
	if m.scanDuration == nil {
		return
	}

	m.scanDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
}

// TokenCorrected records a token repaired by the corrector, and adds an event
// to the span in ctx.
func (m *Metrics) TokenCorrected(ctx context.Context, field string) {
	AddSpanEvent(trace.SpanFromContext(ctx), EventTokenCorrected, attribute.String(SpanAttrField, field))
	if m.correctionsTotal == nil {
		return
	}

	m.correctionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrField, field)))
}

// DecodeFailed records a new-format token that did not decode, and adds an
// event to the span in ctx.
func (m *Metrics) DecodeFailed(ctx context.Context, field string) {
	AddSpanEvent(trace.SpanFromContext(ctx), EventDecodeFailed, attribute.String(SpanAttrField, field))
	if m.decodeFailures == nil {
		return
	}

	m.decodeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(attrField, field)))
}
