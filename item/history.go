package item

import (
	"time"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Direction distinguishes forward transitions from backward moves.
type Direction string

const (
	// DirectionForward marks a configured-transition move.
	DirectionForward Direction = "forward"
	// DirectionBackward marks a history-constrained backward move.
	DirectionBackward Direction = "backward"
)

// HistoryEntry is the immutable audit record of one move. Entries are
// written exactly once per committed move, never edited or deleted, and
// strictly time-ordered per work item.
type HistoryEntry struct {
	ID     id.HistoryID `json:"id"`
	ItemID id.ItemID    `json:"item_id"`

	// FromStepID is Nil for the entry written at item creation.
	FromStepID id.StepID `json:"from_step_id,omitempty"`
	ToStepID   id.StepID `json:"to_step_id"`

	ActorID   id.ActorID `json:"actor_id"`
	Direction Direction  `json:"direction"`
	// Comment is empty when none was supplied.
	Comment string `json:"comment,omitempty"`

	// Snapshot freezes the item's data contract at commit time.
	Snapshot map[string]any `json:"snapshot"`

	CreatedAt time.Time `json:"created_at"`
}

// VisitedSteps returns the distinct steps a history has arrived at, in
// first-visit order. This is the authoritative backward-reachable set
// (before excluding the current step); it is derived from the log on each
// call rather than cached.
func VisitedSteps(entries []*HistoryEntry) []id.StepID {
	seen := make(map[string]bool, len(entries))
	var out []id.StepID
	for _, e := range entries {
		key := e.ToStepID.String()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e.ToStepID)
	}
	return out
}
