package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Liam-Lillieroth/MetaTasks/ext"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/scope"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Event is a single audit trail record.
type Event struct {
	// Action identifies what happened, e.g. "item.moved".
	Action string

	// Category groups related actions, e.g. "metatasks.item".
	Category string

	// Resource is the type of the affected resource.
	Resource string

	// ResourceID is the identifier of the affected resource.
	ResourceID string

	// ActorID identifies who triggered the event, when known.
	ActorID string

	// OrgID is the acting organization, filled from the request scope
	// when present.
	OrgID string

	// Outcome is "success" or "failure".
	Outcome string

	// Severity is "info" or "warning".
	Severity string

	// Reason carries the denial reason for failed moves.
	Reason string

	// Metadata holds action-specific detail.
	Metadata map[string]any

	// OccurredAt is when the event was recorded.
	OccurredAt time.Time
}

// Recorder persists audit events. Implementations decide the backend:
// database table, log stream, external audit service.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, e Event) error

// Record calls f(ctx, e).
func (f RecorderFunc) Record(ctx context.Context, e Event) error { return f(ctx, e) }

// Extension records lifecycle events to an audit trail Recorder.
type Extension struct {
	recorder Recorder
	logger   *slog.Logger
	enabled  map[string]bool
	now      func() time.Time
}

var (
	_ ext.Extension         = (*Extension)(nil)
	_ ext.ItemCreated       = (*Extension)(nil)
	_ ext.TransitionApplied = (*Extension)(nil)
	_ ext.MovedBackward     = (*Extension)(nil)
	_ ext.MoveDenied        = (*Extension)(nil)
)

// New creates an audit extension backed by r. By default every action
// is recorded; use WithActions to narrow the set.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		enabled:  make(map[string]bool),
		now:      time.Now,
	}
	for _, a := range AllActions() {
		e.enabled[a] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit" }

func (e *Extension) record(ctx context.Context, ev Event) error {
	if e.recorder == nil || !e.enabled[ev.Action] {
		return nil
	}
	if ev.Category == "" {
		ev.Category = CategoryItem
	}
	if ev.Resource == "" {
		ev.Resource = ResourceItem
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now().UTC()
	}
	if ev.OrgID == "" {
		if orgID := scope.OrgID(ctx); !orgID.IsNil() {
			ev.OrgID = orgID.String()
		}
	}
	if err := e.recorder.Record(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "audit record failed",
			"action", ev.Action,
			"resource_id", ev.ResourceID,
			"error", err)
		return err
	}
	return nil
}

// OnItemCreated implements ext.ItemCreated.
func (e *Extension) OnItemCreated(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	return e.record(ctx, Event{
		Action:     ActionItemCreated,
		ResourceID: w.ID.String(),
		ActorID:    w.CreatorID.String(),
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
		Metadata: map[string]any{
			"workflow_id": w.WorkflowID.String(),
			"step_id":     w.CurrentStepID.String(),
			"title":       w.Data["title"],
		},
	})
}

// OnTransitionApplied implements ext.TransitionApplied.
func (e *Extension) OnTransitionApplied(ctx context.Context, w *item.WorkItem, t *workflow.Transition, entry *item.HistoryEntry) error {
	md := map[string]any{
		"workflow_id": w.WorkflowID.String(),
		"to_step_id":  entry.ToStepID.String(),
		"direction":   string(entry.Direction),
	}
	if !entry.FromStepID.IsNil() {
		md["from_step_id"] = entry.FromStepID.String()
	}
	if t != nil {
		md["transition_id"] = t.ID.String()
	}
	return e.record(ctx, Event{
		Action:     ActionItemMoved,
		ResourceID: w.ID.String(),
		ActorID:    entry.ActorID.String(),
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
		Metadata:   md,
	})
}

// OnMovedBackward implements ext.MovedBackward.
func (e *Extension) OnMovedBackward(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	md := map[string]any{
		"workflow_id": w.WorkflowID.String(),
		"to_step_id":  entry.ToStepID.String(),
		"comment":     entry.Comment,
	}
	if !entry.FromStepID.IsNil() {
		md["from_step_id"] = entry.FromStepID.String()
	}
	return e.record(ctx, Event{
		Action:     ActionItemMovedBack,
		ResourceID: w.ID.String(),
		ActorID:    entry.ActorID.String(),
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
		Metadata:   md,
	})
}

// OnMoveDenied implements ext.MoveDenied.
func (e *Extension) OnMoveDenied(ctx context.Context, itemID id.ItemID, actorID id.ActorID, moveErr error) error {
	reason := ""
	if moveErr != nil {
		reason = moveErr.Error()
	}
	return e.record(ctx, Event{
		Action:     ActionMoveDenied,
		ResourceID: itemID.String(),
		ActorID:    actorID.String(),
		Outcome:    OutcomeFailure,
		Severity:   SeverityWarning,
		Reason:     reason,
	})
}
