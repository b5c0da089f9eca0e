package stream

import (
	"fmt"
	"strings"
	"sync"
)

// Topic names. Entity topics scope delivery to one item or one
// workflow; TopicItems carries every item event, and TopicFirehose
// carries everything including denials.
const (
	TopicItems    = "items"
	TopicFirehose = "firehose"

	topicPrefixItem     = "item:"
	topicPrefixWorkflow = "workflow:"
)

// ItemTopic returns the topic carrying events for a single work item.
func ItemTopic(itemID string) string { return topicPrefixItem + itemID }

// WorkflowTopic returns the topic carrying events for every item on a
// workflow.
func WorkflowTopic(workflowID string) string { return topicPrefixWorkflow + workflowID }

// ValidateTopic reports whether a topic name is one the broker
// publishes to.
func ValidateTopic(topic string) error {
	switch {
	case topic == TopicItems, topic == TopicFirehose:
		return nil
	case strings.HasPrefix(topic, topicPrefixItem) && len(topic) > len(topicPrefixItem):
		return nil
	case strings.HasPrefix(topic, topicPrefixWorkflow) && len(topic) > len(topicPrefixWorkflow):
		return nil
	}
	return fmt.Errorf("stream: unknown topic %q", topic)
}

// ParseTopicEntity splits an entity topic into its kind ("item" or
// "workflow") and ID. Broadcast topics return an empty kind.
func ParseTopicEntity(topic string) (kind, entityID string) {
	if rest, ok := strings.CutPrefix(topic, topicPrefixItem); ok {
		return "item", rest
	}
	if rest, ok := strings.CutPrefix(topic, topicPrefixWorkflow); ok {
		return "workflow", rest
	}
	return "", ""
}

// resolveTopics returns every topic an item event fans out to. Denials
// stay off the item and workflow topics so entity watchers only see
// committed state changes.
func resolveTopics(ev ItemEvent, denied bool) []string {
	if denied {
		return []string{TopicFirehose}
	}
	topics := []string{ItemTopic(ev.ItemID), TopicItems, TopicFirehose}
	if ev.WorkflowID != "" {
		topics = append(topics, WorkflowTopic(ev.WorkflowID))
	}
	return topics
}

// topicRegistry indexes subscribers by topic. A subscriber may sit on
// any number of topics; delivery copies the subscriber set under the
// read lock so a slow consumer never blocks registration.
type topicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber
}

func newTopicRegistry() *topicRegistry {
	return &topicRegistry{topics: make(map[string]map[string]*Subscriber)}
}

func (r *topicRegistry) subscribe(topic string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		r.topics[topic] = subs
	}
	subs[sub.ID] = sub
}

func (r *topicRegistry) unsubscribe(topic, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(r.topics, topic)
	}
}

// remove drops a subscriber from every topic it sits on.
func (r *topicRegistry) remove(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, subs := range r.topics {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
}

// publish delivers the event to every subscriber of the topic. The
// per-topic Topic field is stamped on a copy of the event.
func (r *topicRegistry) publish(topic string, ev Event) int {
	r.mu.RLock()
	subs := make([]*Subscriber, 0, len(r.topics[topic]))
	for _, sub := range r.topics[topic] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	ev.Topic = topic
	delivered := 0
	for _, sub := range subs {
		if sub.send(ev) {
			delivered++
		}
	}
	return delivered
}

func (r *topicRegistry) stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.topics))
	for topic, subs := range r.topics {
		out[topic] = len(subs)
	}
	return out
}
