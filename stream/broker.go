// Package stream is an in-memory publish/subscribe broker for work item
// lifecycle events. Registered as an extension on the executor, it fans
// every committed move out to per-item, per-workflow, and broadcast
// topics, so callers can feed live boards or SSE/WebSocket surfaces
// without polling history.
//
// Delivery is best effort: subscribers get buffered channels with
// credit-based flow control, and a consumer that falls behind drops
// events rather than stalling moves.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Liam-Lillieroth/MetaTasks/ext"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/scope"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

const extensionName = "stream-broker"

// Compile-time checks that the broker satisfies the extension hooks.
var (
	_ ext.Extension         = (*Broker)(nil)
	_ ext.ItemCreated       = (*Broker)(nil)
	_ ext.TransitionApplied = (*Broker)(nil)
	_ ext.MovedBackward     = (*Broker)(nil)
	_ ext.MoveDenied        = (*Broker)(nil)
)

// Broker routes item lifecycle events to topic subscribers.
type Broker struct {
	registry *topicRegistry
	logger   *slog.Logger
	buffer   int
	now      func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[string]*Subscriber
	closed bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the broker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBufferSize sets the per-subscriber channel buffer and credit line.
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// NewBroker creates an event broker. Register it with the executor via
// executor.WithExtensions to receive events.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		registry: newTopicRegistry(),
		logger:   slog.Default(),
		buffer:   64,
		now:      time.Now,
		subs:     make(map[string]*Subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return extensionName }

// Subscribe registers a new subscriber on the given topics and returns
// it. The caller reads from Subscriber.Events and calls Ack as it
// consumes.
func (b *Broker) Subscribe(topics ...string) (*Subscriber, error) {
	for _, topic := range topics {
		if err := ValidateTopic(topic); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("stream: broker is closed")
	}
	b.nextID++
	sub := newSubscriber(fmt.Sprintf("sub-%d", b.nextID), b.buffer)
	b.subs[sub.ID] = sub
	for _, topic := range topics {
		b.registry.subscribe(topic, sub)
	}
	return sub, nil
}

// Unsubscribe removes a subscriber from one topic, leaving its other
// subscriptions intact.
func (b *Broker) Unsubscribe(topic, subscriberID string) {
	b.registry.unsubscribe(topic, subscriberID)
}

// RemoveSubscriber drops a subscriber from every topic and closes its
// event channel.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.mu.Lock()
	sub, ok := b.subs[subscriberID]
	delete(b.subs, subscriberID)
	b.mu.Unlock()

	b.registry.remove(subscriberID)
	if ok {
		sub.close()
	}
}

// Close removes all subscribers and rejects further subscriptions.
// Events published after Close are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*Subscriber)
	b.closed = true
	b.mu.Unlock()

	for subID := range subs {
		b.registry.remove(subID)
	}
	for _, sub := range subs {
		sub.close()
	}
}

// Stats returns the subscriber count per active topic.
func (b *Broker) Stats() map[string]int { return b.registry.stats() }

// ── extension hooks ─────────────────────────────────────────────────

// OnItemCreated implements ext.ItemCreated.
func (b *Broker) OnItemCreated(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	b.publish(EventItemCreated, ItemEvent{
		ItemID:     w.ID.String(),
		WorkflowID: w.WorkflowID.String(),
		OrgID:      orgFrom(ctx),
		ToStepID:   entry.ToStepID.String(),
		ActorID:    entry.ActorID.String(),
	}, false)
	return nil
}

// OnTransitionApplied implements ext.TransitionApplied.
func (b *Broker) OnTransitionApplied(ctx context.Context, w *item.WorkItem, _ *workflow.Transition, entry *item.HistoryEntry) error {
	b.publish(EventItemMoved, ItemEvent{
		ItemID:     w.ID.String(),
		WorkflowID: w.WorkflowID.String(),
		OrgID:      orgFrom(ctx),
		FromStepID: entry.FromStepID.String(),
		ToStepID:   entry.ToStepID.String(),
		ActorID:    entry.ActorID.String(),
		Direction:  string(entry.Direction),
		Comment:    entry.Comment,
	}, false)
	return nil
}

// OnMovedBackward implements ext.MovedBackward.
func (b *Broker) OnMovedBackward(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	b.publish(EventItemMovedBack, ItemEvent{
		ItemID:     w.ID.String(),
		WorkflowID: w.WorkflowID.String(),
		OrgID:      orgFrom(ctx),
		FromStepID: entry.FromStepID.String(),
		ToStepID:   entry.ToStepID.String(),
		ActorID:    entry.ActorID.String(),
		Direction:  string(entry.Direction),
		Comment:    entry.Comment,
	}, false)
	return nil
}

// OnMoveDenied implements ext.MoveDenied. Denials only reach the
// firehose topic.
func (b *Broker) OnMoveDenied(ctx context.Context, itemID id.ItemID, actorID id.ActorID, moveErr error) error {
	b.publish(EventMoveDenied, ItemEvent{
		ItemID:  itemID.String(),
		OrgID:   orgFrom(ctx),
		ActorID: actorID.String(),
		Error:   moveErr.Error(),
	}, true)
	return nil
}

func (b *Broker) publish(typ EventType, payload ItemEvent, denied bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("stream: event payload marshal failed",
			slog.String("type", string(typ)),
			slog.String("error", err.Error()))
		return
	}
	ev := Event{
		Type:      typ,
		Timestamp: b.now().UTC(),
		Data:      data,
	}
	for _, topic := range resolveTopics(payload, denied) {
		b.registry.publish(topic, ev)
	}
}

func orgFrom(ctx context.Context) string {
	orgID := scope.OrgID(ctx)
	if orgID.IsNil() {
		return ""
	}
	return orgID.String()
}
