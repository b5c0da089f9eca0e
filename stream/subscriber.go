package stream

import (
	"sync/atomic"
)

// Subscriber is one consumer's buffered event channel with credit-based
// flow control. Each delivery spends one credit; the consumer returns
// credits with Ack as it drains events. A subscriber that stops acking
// runs out of credits and silently drops further events instead of
// blocking the publisher.
type Subscriber struct {
	ID string

	events  chan Event
	credits atomic.Int64
	closed  atomic.Bool

	// dropped counts events lost to a full buffer or exhausted credits.
	dropped atomic.Int64
}

// newSubscriber sizes the buffer and the initial credit line to the
// same value so a fresh subscriber can always absorb a full buffer.
func newSubscriber(id string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	s := &Subscriber{
		ID:     id,
		events: make(chan Event, buffer),
	}
	s.credits.Store(int64(buffer))
	return s
}

// Events is the subscriber's receive channel. It is closed when the
// subscriber is removed from the broker.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Ack returns n credits to the subscriber after the consumer has
// processed n events.
func (s *Subscriber) Ack(n int) {
	if n > 0 {
		s.credits.Add(int64(n))
	}
}

// Dropped reports how many events were lost to backpressure.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// send attempts a non-blocking delivery, spending one credit. The
// credit is refunded if the buffer turns out to be full.
func (s *Subscriber) send(ev Event) bool {
	if s.closed.Load() {
		return false
	}
	if s.credits.Add(-1) < 0 {
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
}

// close is idempotent; only the first call closes the channel.
func (s *Subscriber) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.events)
	}
}
