package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/termgraph/runtime"
)

// MetricsHandler translates evaluation events into OpenTelemetry metrics.
// It records counters and histograms for node evaluations, failures and
// evaluation durations, keyed by operator and outcome.
type MetricsHandler struct {
	nodeEvaluations metric.Int64Counter
	nodeFailures    metric.Int64Counter
	nodeDuration    metric.Float64Histogram
	evalDuration    metric.Float64Histogram
	evalNodes       metric.Int64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to create
// its instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	nodeEval, err := meter.Int64Counter("termgraph.node.evaluations",
		metric.WithDescription("Number of node evaluations"),
	)
	if err != nil {
		return nil, err
	}

	nodeFail, err := meter.Int64Counter("termgraph.node.failures",
		metric.WithDescription("Number of node failures"),
	)
	if err != nil {
		return nil, err
	}

	nodeDur, err := meter.Float64Histogram("termgraph.node.duration",
		metric.WithDescription("Duration of node evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	evalDur, err := meter.Float64Histogram("termgraph.eval.duration",
		metric.WithDescription("Duration of a whole evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	evalNodes, err := meter.Int64Histogram("termgraph.eval.nodes",
		metric.WithDescription("Distinct nodes per evaluation"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		nodeEvaluations: nodeEval,
		nodeFailures:    nodeFail,
		nodeDuration:    nodeDur,
		evalDuration:    evalDur,
		evalNodes:       evalNodes,
	}, nil
}

// Handle processes an evaluation event and records the matching metrics.
// It implements runtime.EventHandler semantics.
func (h *MetricsHandler) Handle(e runtime.Event) {
	ctx := context.Background()
	switch e.Kind {
	case runtime.EventNodeFinished:
		attrs := metric.WithAttributes(attribute.String("operator", e.Operator))
		h.nodeEvaluations.Add(ctx, 1, attrs)
		h.nodeDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
	case runtime.EventNodeFailed:
		h.nodeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operator", e.Operator)))
	case runtime.EventEvalFinished:
		status, _ := e.Payload["status"].(string)
		attrs := metric.WithAttributes(attribute.String("status", status))
		h.evalDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
		if n, ok := e.Payload["nodes"].(int); ok {
			h.evalNodes.Record(ctx, int64(n), attrs)
		}
	}
}
