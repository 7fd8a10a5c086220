package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys set by Tracer.
const (
	AttrOperation = attribute.Key("monitor.op")
	AttrNamespace = attribute.Key("monitor.namespace")
	AttrFailed    = attribute.Key("monitor.failed")
)

// Operation names a monitored function.
type Operation struct {
	Namespace string // optional, such as a cache namespace or package
	Name      string
}

// ID is Namespace.Name, or Name alone without a namespace.
func (o Operation) ID() string {
	if o.Namespace == "" {
		return o.Name
	}
	return o.Namespace + "." + o.Name
}

// SpanName is "monitor." followed by ID.
func (o Operation) SpanName() string {
	return "monitor." + o.ID()
}

// labels identifies o on spans and metric points.
func (o Operation) labels() []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrOperation.String(o.ID())}
	if o.Namespace != "" {
		attrs = append(attrs, AttrNamespace.String(o.Namespace))
	}
	return attrs
}

// Tracer opens and closes one span per monitored call.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: EndSpan is best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type spanTracer struct {
	tracer trace.Tracer
	// annotate is false for the no-op tracer, whose spans drop everything.
	annotate bool
}

// NewTracer adapts an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &spanTracer{tracer: t, annotate: true}
}

func newNoopTracer() Tracer {
	return &spanTracer{tracer: tracenoop.NewTracerProvider().Tracer("")}
}

func (t *spanTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	if !t.annotate {
		return t.tracer.Start(ctx, op.SpanName())
	}
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(op.labels(), AttrFailed.Bool(false))...),
	)
}

func (t *spanTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if !t.annotate {
		return
	}
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetAttributes(AttrFailed.Bool(true))
	span.SetStatus(codes.Error, err.Error())
}
