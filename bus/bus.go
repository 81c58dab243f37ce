// Package bus fans evaluation events out to observers and persists them for
// later inspection. An EventBus satisfies runtime.EventPublisher, so it can be
// handed to the evaluator directly through EvalOptions.EventBus.
package bus

import "github.com/petal-labs/termgraph/runtime"

// EventBus distributes events to subscribers.
type EventBus interface {
	runtime.EventPublisher

	// Subscribe registers a subscriber for a single evaluation.
	// The Subscription must be closed when done.
	Subscribe(evalID string) Subscription

	// SubscribeAll registers a subscriber for every evaluation.
	// The Subscription must be closed when done.
	SubscribeAll() Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription receives events.
type Subscription interface {
	// Events returns the channel events are delivered on. It is closed when
	// the subscription or the bus is closed.
	Events() <-chan runtime.Event

	// Close unsubscribes and releases resources.
	Close() error
}

// Forward drains sub into handler until the subscription channel closes.
// It is typically run in its own goroutine.
func Forward(sub Subscription, handler runtime.EventHandler) {
	for e := range sub.Events() {
		handler(e)
	}
}
