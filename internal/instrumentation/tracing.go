package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the gmailurl package.
const TracerName = "github.com/teemow/gmailurl"

// Span attribute keys for scans.
const (
	// SpanAttrSource is the input format ("text" or "raw").
	SpanAttrSource = "scan.source"

	// SpanAttrMode is the grammar mode.
	SpanAttrMode = "scan.mode"

	// SpanAttrInput is the input path.
	SpanAttrInput = "scan.input"

	// SpanAttrRunID is the per-run identifier.
	SpanAttrRunID = "scan.run_id"

	// SpanAttrWorkers is the number of record builders.
	SpanAttrWorkers = "scan.workers"

	// SpanAttrMatches is the number of URLs matched.
	SpanAttrMatches = "scan.matches"

	// SpanAttrRecords is the number of records emitted.
	SpanAttrRecords = "scan.records"

	// SpanAttrField is the captured field an event refers to.
	SpanAttrField = "scan.field"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 6),
	}
}

// WithSource adds the input format attribute.
func (b *SpanAttributeBuilder) WithSource(source string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrSource, source))
	return b
}

// WithMode adds the grammar mode attribute.
func (b *SpanAttributeBuilder) WithMode(mode string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrMode, mode))
	return b
}

// WithInput adds the input path attribute.
func (b *SpanAttributeBuilder) WithInput(input string) *SpanAttributeBuilder {
	if input != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrInput, input))
	}
	return b
}

// WithRunID adds the run identifier attribute.
func (b *SpanAttributeBuilder) WithRunID(runID string) *SpanAttributeBuilder {
	if runID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrRunID, runID))
	}
	return b
}

// WithWorkers adds the worker count attribute.
func (b *SpanAttributeBuilder) WithWorkers(workers int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrWorkers, workers))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartScanSpan starts a "scan.<source>" span.
func StartScanSpan(ctx context.Context, source string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append(NewSpanAttributeBuilder().WithSource(source).Build(), attrs...)
	return StartSpan(ctx, "scan."+source, allAttrs...)
}

// SetScanResult records the final counts of a scan on its span.
func SetScanResult(span trace.Span, matches, records int) {
	span.SetAttributes(
		attribute.Int(SpanAttrMatches, matches),
		attribute.Int(SpanAttrRecords, records),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Span events recorded on the active scan span.
const (
	EventTokenCorrected = "token.corrected"
	EventDecodeFailed   = "token.decode_failed"
)

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
