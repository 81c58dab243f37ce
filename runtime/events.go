package runtime

import "time"

// EventKind identifies the type of event emitted by the evaluator.
type EventKind string

const (
	// EventEvalStarted is emitted when an evaluation begins.
	EventEvalStarted EventKind = "eval.started"

	// EventNodeStarted is emitted before a node's operator is applied.
	EventNodeStarted EventKind = "node.started"

	// EventNodeFinished is emitted when a node produced its result.
	EventNodeFinished EventKind = "node.finished"

	// EventNodeFailed is emitted when a node's leaves or operator failed.
	EventNodeFailed EventKind = "node.failed"

	// EventEvalFinished is emitted when an evaluation completes or aborts.
	EventEvalFinished EventKind = "eval.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured record of what happened during an evaluation.
// Events are kept small: payloads carry counts and variant names, never
// term collections.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// EvalID is the unique identifier of the evaluation.
	EvalID string

	// NodeID is the arena label of the node, e.g. "n3" (empty for
	// evaluation-level events).
	NodeID string

	// Operator is the node's operator name (empty for evaluation-level events).
	Operator string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration of the node or of the whole evaluation.
	Elapsed time.Duration

	// Payload contains event-specific data.
	Payload map[string]any

	// Seq is a monotonic sequence number per evaluation (1-indexed).
	Seq uint64

	// TraceID is the OpenTelemetry trace ID (hex-encoded, empty when OTel inactive).
	TraceID string

	// SpanID is the OpenTelemetry span ID (hex-encoded, empty when OTel inactive).
	SpanID string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, evalID string) Event {
	return Event{
		Kind:    kind,
		EvalID:  evalID,
		Time:    time.Now(),
		Payload: make(map[string]any),
	}
}

// WithNode sets the node information on the event.
func (e Event) WithNode(nodeID, operator string) Event {
	e.NodeID = nodeID
	e.Operator = operator
	return e
}

// WithTime sets the event timestamp.
func (e Event) WithTime(t time.Time) Event {
	e.Time = t
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventEmitter is a function type for emitting events.
type EventEmitter func(Event)

// EventEmitterDecorator wraps an emitter to add cross-cutting behavior,
// such as stamping trace metadata onto events.
type EventEmitterDecorator func(EventEmitter) EventEmitter

// EventPublisher can publish events to external subscribers.
// This interface is satisfied by bus.EventBus, allowing the evaluator
// to distribute events without importing the bus package directly.
type EventPublisher interface {
	Publish(event Event)
}

// EventHandler is a function type for handling events.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
