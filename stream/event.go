package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies what happened to a work item.
type EventType string

const (
	EventItemCreated   EventType = "item.created"
	EventItemMoved     EventType = "item.moved"
	EventItemMovedBack EventType = "item.moved_back"
	EventMoveDenied    EventType = "item.move_denied"
)

// Event is the envelope delivered to subscribers. Data holds the
// marshaled ItemEvent payload.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Topic     string          `json:"topic,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// ItemEvent is the payload for every item lifecycle event. Fields that
// do not apply to a given event type are left empty: a creation has no
// from-step, a denial has no to-step, and only denials carry an error.
type ItemEvent struct {
	ItemID     string `json:"item_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	OrgID      string `json:"org_id,omitempty"`

	FromStepID string `json:"from_step_id,omitempty"`
	ToStepID   string `json:"to_step_id,omitempty"`

	ActorID   string `json:"actor_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	Comment   string `json:"comment,omitempty"`

	// Error is the denial reason; set only for EventMoveDenied.
	Error string `json:"error,omitempty"`
}
