package executor

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// ListAvailableTransitions returns the transitions the actor may execute
// from the item's current step, in display order. Inactive transitions
// and transitions the actor lacks permission for are filtered out; a
// malformed custom condition filters its transition rather than failing
// the listing.
func (e *Executor) ListAvailableTransitions(ctx context.Context, act *actor.Actor, itemID id.ItemID) ([]*workflow.Transition, error) {
	w, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	current, err := e.workflows.GetStep(ctx, w.WorkflowID, w.CurrentStepID)
	if err != nil {
		return nil, err
	}

	all, err := e.workflows.ListTransitionsFrom(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	out := make([]*workflow.Transition, 0, len(all))
	for _, t := range all {
		if !t.Active {
			continue
		}
		d := e.perms.CanExecute(ctx, act, t, w, current)
		if d.Err != nil {
			e.logger.WarnContext(ctx, "transition skipped: malformed condition",
				"transition_id", t.ID.String(),
				"error", d.Err.Error())
			continue
		}
		if !d.Allowed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ListAvailableBackwardSteps returns the steps the actor may move the
// item back to: the distinct visited steps excluding the current one, in
// first-visit order. Actors without backward-move authority get an empty
// list, not an error.
func (e *Executor) ListAvailableBackwardSteps(ctx context.Context, act *actor.Actor, itemID id.ItemID) ([]*workflow.Step, error) {
	w, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !e.canMoveBackward(ctx, act, w) {
		return nil, nil
	}

	visited, err := e.visitedSteps(ctx, itemID)
	if err != nil {
		return nil, err
	}

	out := make([]*workflow.Step, 0, len(visited))
	for _, stepID := range visited {
		if stepID.String() == w.CurrentStepID.String() {
			continue
		}
		s, err := e.workflows.GetStep(ctx, w.WorkflowID, stepID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// History returns the item's move log oldest first.
func (e *Executor) History(ctx context.Context, itemID id.ItemID, opts item.ListOpts) ([]*item.HistoryEntry, error) {
	return e.items.ListHistory(ctx, itemID, opts)
}
