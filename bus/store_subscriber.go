package bus

import (
	"context"
	"log/slog"

	"github.com/petal-labs/termgraph/runtime"
)

// StoreSubscriber writes events to an EventStore. Its Handle method is a
// runtime.EventHandler, so it can be attached to the evaluator directly or
// fed from a bus subscription with Forward.
type StoreSubscriber struct {
	store  EventStore
	logger *slog.Logger
}

// NewStoreSubscriber creates a StoreSubscriber. A nil logger uses slog.Default.
func NewStoreSubscriber(store EventStore, logger *slog.Logger) *StoreSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSubscriber{
		store:  store,
		logger: logger,
	}
}

// Handle persists a single event. Append failures are logged.
func (s *StoreSubscriber) Handle(event runtime.Event) {
	if err := s.store.Append(context.Background(), event); err != nil {
		s.logger.Error("failed to persist event",
			"eval_id", event.EvalID,
			"node_id", event.NodeID,
			"kind", event.Kind,
			"seq", event.Seq,
			"error", err,
		)
	}
}
