// Package item defines work items — tracked instances progressing through
// a workflow — their immutable history, and the item store interface.
//
// A work item's state is its current step. Only the executor package moves
// an item between steps; every committed move appends exactly one history
// entry, and the history is the authoritative record of where the item has
// been.
package item

import (
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// WorkItem is a tracked instance of a workflow.
type WorkItem struct {
	metatasks.Entity

	ID            id.ItemID     `json:"id"`
	WorkflowID    id.WorkflowID `json:"workflow_id"`
	CurrentStepID id.StepID     `json:"current_step_id"`

	CreatorID id.ActorID `json:"creator_id"`
	// AssigneeID is Nil when the item is unassigned.
	AssigneeID id.ActorID `json:"assignee_id,omitempty"`

	// Data is the item's data contract: standard-field and namespaced
	// custom-field values shaped by the workflow's field plan.
	Data map[string]any `json:"data"`

	// Completed is true exactly when CurrentStepID is a terminal step.
	// Maintained only by the executor.
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// StepEnteredAt records when the item arrived on its current step.
	StepEnteredAt time.Time `json:"step_entered_at"`

	// Version supports optimistic concurrency. Every committed move
	// increments it; commits carry the version they read.
	Version int64 `json:"version"`
}

// Priority returns the item's priority from the data contract, or the
// empty string when absent.
func (w *WorkItem) Priority() string {
	p, _ := w.Data["priority"].(string)
	return p
}

// DaysOnCurrentStep reports whole days since the item entered its current
// step.
func (w *WorkItem) DaysOnCurrentStep(now time.Time) int {
	if w.StepEnteredAt.IsZero() {
		return 0
	}
	return int(now.Sub(w.StepEnteredAt).Hours() / 24)
}

// HoursOnCurrentStep reports hours since the item entered its current
// step, rounded to one decimal.
func (w *WorkItem) HoursOnCurrentStep(now time.Time) float64 {
	if w.StepEnteredAt.IsZero() {
		return 0
	}
	hours := now.Sub(w.StepEnteredAt).Hours()
	return float64(int(hours*10+0.5)) / 10
}

// SnapshotData returns a deep copy of the item's data contract, suitable
// for freezing into a history entry.
func (w *WorkItem) SnapshotData() map[string]any {
	return CloneData(w.Data)
}

// CloneData deep-copies a data contract map. Values are limited to the
// JSON shapes (maps, slices, scalars).
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
