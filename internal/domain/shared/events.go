// Package shared holds domain building blocks used by more than one aggregate.
package shared

import "time"

// DomainEvent is something an aggregate reports after a state change.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// AggregateRoot buffers events until the application layer pulls them.
type AggregateRoot struct {
	pending []DomainEvent
}

// Record queues an event.
func (a *AggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PullEvents returns the queued events in order and empties the queue.
func (a *AggregateRoot) PullEvents() []DomainEvent {
	out := a.pending
	a.pending = nil
	return out
}
