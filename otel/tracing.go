// Package otel provides OpenTelemetry integration for termgraph evaluation
// events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/termgraph/runtime"
)

// TracingHandler translates evaluation events into OpenTelemetry spans.
// Each evaluation gets a root span and each node a child span, started and
// ended based on event kind.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	evalSpans map[string]trace.Span      // evalID -> span
	evalCtxs  map[string]context.Context // evalID -> context (for child spans)
	nodeSpans map[string]trace.Span      // evalID:nodeID -> span
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from evaluation events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		evalSpans: make(map[string]trace.Span),
		evalCtxs:  make(map[string]context.Context),
		nodeSpans: make(map[string]trace.Span),
	}
}

// Handle processes an evaluation event and creates or ends spans accordingly.
// It implements runtime.EventHandler semantics.
func (h *TracingHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventEvalStarted:
		h.handleEvalStarted(e)
	case runtime.EventNodeStarted:
		h.handleNodeStarted(e)
	case runtime.EventNodeFinished:
		h.handleNodeEnded(e, nil)
	case runtime.EventNodeFailed:
		msg := payloadString(e, "error", "unknown error")
		h.handleNodeEnded(e, &msg)
	case runtime.EventEvalFinished:
		h.handleEvalFinished(e)
	}
}

func (h *TracingHandler) handleEvalStarted(e runtime.Event) {
	ctx, span := h.tracer.Start(context.Background(), "eval:"+e.EvalID,
		trace.WithAttributes(
			attribute.String("termgraph.eval_id", e.EvalID),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.evalSpans[e.EvalID] = span
	h.evalCtxs[e.EvalID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) handleNodeStarted(e runtime.Event) {
	h.mu.RLock()
	parentCtx, ok := h.evalCtxs[e.EvalID]
	h.mu.RUnlock()

	if !ok {
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "node:"+e.Operator,
		trace.WithAttributes(
			attribute.String("termgraph.eval_id", e.EvalID),
			attribute.String("termgraph.node_id", e.NodeID),
			attribute.String("termgraph.operator", e.Operator),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.nodeSpans[e.EvalID+":"+e.NodeID] = span
	h.mu.Unlock()
}

// handleNodeEnded ends the node span, with error status when errMsg is set.
func (h *TracingHandler) handleNodeEnded(e runtime.Event, errMsg *string) {
	key := e.EvalID + ":" + e.NodeID

	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	span.SetAttributes(attribute.String("termgraph.duration", e.Elapsed.String()))
	if errMsg != nil {
		span.SetStatus(codes.Error, *errMsg)
		span.RecordError(spanError(*errMsg), trace.WithTimestamp(e.Time))
	} else {
		if terms, ok := e.Payload["terms"].(int); ok {
			span.SetAttributes(attribute.Int("termgraph.terms", terms))
		}
		span.SetAttributes(attribute.String("termgraph.variant", payloadString(e, "variant", "")))
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

func (h *TracingHandler) handleEvalFinished(e runtime.Event) {
	h.mu.Lock()
	span, ok := h.evalSpans[e.EvalID]
	if ok {
		delete(h.evalSpans, e.EvalID)
		delete(h.evalCtxs, e.EvalID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	status := payloadString(e, "status", "")
	span.SetAttributes(
		attribute.String("termgraph.duration", e.Elapsed.String()),
		attribute.String("termgraph.status", status),
	)
	if nodes, ok := e.Payload["nodes"].(int); ok {
		span.SetAttributes(attribute.Int("termgraph.nodes", nodes))
	}

	if status == "failed" {
		span.SetStatus(codes.Error, payloadString(e, "error", "evaluation failed"))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

// ActiveSpanContext returns the SpanContext for the active node span
// identified by evalID and nodeID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSpanContext(evalID, nodeID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.nodeSpans[evalID+":"+nodeID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveEvalSpanContext returns the SpanContext for the active evaluation
// span identified by evalID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveEvalSpanContext(evalID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.evalSpans[evalID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

func payloadString(e runtime.Event, key, def string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return def
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
