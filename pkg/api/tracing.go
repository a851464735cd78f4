package api

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingListener opens one OpenTelemetry span per request (start or resume)
// and records lifecycle points as span events.
type TracingListener struct {
	NoopListener

	tracer trace.Tracer

	mu    sync.Mutex
	spans map[RequestContext]trace.Span
}

// NewTracingListener creates a listener using tracer. A nil tracer means
// otel.Tracer("flowtest").
func NewTracingListener(tracer trace.Tracer) *TracingListener {
	if tracer == nil {
		tracer = otel.Tracer("flowtest")
	}
	return &TracingListener{tracer: tracer, spans: make(map[RequestContext]trace.Span)}
}

func (t *TracingListener) span(ctx RequestContext) trace.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[ctx]
}

func (t *TracingListener) RequestSubmitted(ctx RequestContext) {
	_, span := t.tracer.Start(ctx.Context(), "flow.request",
		trace.WithAttributes(
			attribute.String("flow.execution", ctx.ExecutionKey()),
			attribute.String("flow.event", ctx.ExternalContext().RequestParameters().Get(EventIDParameter)),
		))
	t.mu.Lock()
	t.spans[ctx] = span
	t.mu.Unlock()
}

func (t *TracingListener) RequestProcessed(ctx RequestContext) {
	t.mu.Lock()
	span, ok := t.spans[ctx]
	delete(t.spans, ctx)
	t.mu.Unlock()
	if !ok {
		return
	}
	if f := ctx.ActiveFlow(); f != nil {
		span.SetAttributes(attribute.String("flow.id", f.ID()))
	}
	span.End()
}

func (t *TracingListener) SessionStarting(ctx RequestContext, s FlowSession, _ AttributeMap) {
	if span := t.span(ctx); span != nil {
		span.AddEvent("session.starting", trace.WithAttributes(
			attribute.String("flow.id", s.Definition().ID()),
		))
	}
}

func (t *TracingListener) TransitionExecuting(ctx RequestContext, tr TransitionDefinition) {
	if span := t.span(ctx); span != nil {
		span.AddEvent("transition", trace.WithAttributes(
			attribute.String("transition.on", tr.ID()),
			attribute.String("transition.target", tr.TargetStateID()),
		))
	}
}

func (t *TracingListener) StateEntered(ctx RequestContext, _ StateDefinition, state StateDefinition) {
	if span := t.span(ctx); span != nil {
		span.AddEvent("state.entered", trace.WithAttributes(
			attribute.String("flow.id", state.Owner().ID()),
			attribute.String("state.id", state.ID()),
		))
	}
}

func (t *TracingListener) ViewRendered(ctx RequestContext, _ View, state StateDefinition) {
	if span := t.span(ctx); span != nil {
		span.AddEvent("view.rendered", trace.WithAttributes(
			attribute.String("state.id", state.ID()),
		))
	}
}

func (t *TracingListener) SessionEnded(ctx RequestContext, s FlowSession, outcome string, _ AttributeMap) {
	if span := t.span(ctx); span != nil {
		span.AddEvent("session.ended", trace.WithAttributes(
			attribute.String("flow.id", s.Definition().ID()),
			attribute.String("flow.outcome", outcome),
		))
	}
}

func (t *TracingListener) ExceptionThrown(ctx RequestContext, err error) {
	if span := t.span(ctx); span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
