package otel

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/termgraph/runtime"
)

// EnrichEmitter wraps an EventEmitter with OpenTelemetry trace context.
// When events are emitted, it looks up the active span from the TracingHandler
// and populates the TraceID and SpanID fields on the event.
//
// Node events prefer the node span and fall back to the evaluation span.
// When no span is active, the event passes through unchanged.
func EnrichEmitter(emit runtime.EventEmitter, tracing *TracingHandler) runtime.EventEmitter {
	return func(e runtime.Event) {
		if e.NodeID != "" {
			stamp(&e, tracing.ActiveSpanContext(e.EvalID, e.NodeID))
		}
		if e.TraceID == "" && e.EvalID != "" {
			stamp(&e, tracing.ActiveEvalSpanContext(e.EvalID))
		}
		emit(e)
	}
}

// Decorator adapts EnrichEmitter to runtime.EvalOptions.EventEmitterDecorator.
func Decorator(tracing *TracingHandler) runtime.EventEmitterDecorator {
	return func(emit runtime.EventEmitter) runtime.EventEmitter {
		return EnrichEmitter(emit, tracing)
	}
}

func stamp(e *runtime.Event, sc trace.SpanContext) {
	if !sc.IsValid() {
		return
	}
	e.TraceID = sc.TraceID().String()
	e.SpanID = sc.SpanID().String()
}
