package bus

import (
	"context"

	"github.com/petal-labs/termgraph/runtime"
)

// EventStore persists evaluation events for replay.
type EventStore interface {
	// Append stores an event.
	Append(ctx context.Context, event runtime.Event) error

	// List returns the events of one evaluation in Seq order.
	// afterSeq: return events with Seq > afterSeq (0 means all)
	// limit: max events to return (0 means no limit)
	List(ctx context.Context, evalID string, afterSeq uint64, limit int) ([]runtime.Event, error)

	// LatestSeq returns the highest Seq for an evaluation (0 if no events).
	LatestSeq(ctx context.Context, evalID string) (uint64, error)

	// EvalIDs returns the distinct evaluation IDs in the store, sorted.
	EvalIDs(ctx context.Context) ([]string, error)
}
