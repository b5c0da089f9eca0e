package executor

import (
	"context"
	"errors"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/scope"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// MoveBackward returns a work item to a step its history has already
// visited. Backward moves bypass the transition graph; in exchange they
// are reserved for organization admins, staff, and the item's creator,
// always require a comment, and may only target previously visited steps.
// Arriving backward on a non-terminal step reopens a completed item.
func (e *Executor) MoveBackward(ctx context.Context, act *actor.Actor, itemID id.ItemID, targetStepID id.StepID, comment string) (*item.WorkItem, error) {
	const attempts = 2
	ctx = scope.With(ctx, act.ID, act.OrgID)

	var lastErr error
	for i := 0; i < attempts; i++ {
		w, err := e.moveBackwardOnce(ctx, act, itemID, targetStepID, comment)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, metatasks.ErrVersionConflict) {
			return nil, e.denied(ctx, itemID, act.ID, err)
		}
		lastErr = err
	}

	e.logger.WarnContext(ctx, "backward move lost version race twice",
		"item_id", itemID.String(),
		"target_step_id", targetStepID.String(),
		"error", lastErr.Error())
	return nil, e.denied(ctx, itemID, act.ID, &metatasks.MoveError{
		Kind:    metatasks.ErrConcurrentModification,
		Rule:    "work item changed while the move was validating",
		ItemID:  itemID,
		ActorID: act.ID,
		StepID:  targetStepID,
	})
}

func (e *Executor) moveBackwardOnce(ctx context.Context, act *actor.Actor, itemID id.ItemID, targetStepID id.StepID, comment string) (*item.WorkItem, error) {
	w, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	moveErr := func(kind error, rule string) *metatasks.MoveError {
		return &metatasks.MoveError{
			Kind:    kind,
			Rule:    rule,
			ItemID:  itemID,
			ActorID: act.ID,
			StepID:  targetStepID,
		}
	}

	if comment == "" {
		return nil, moveErr(metatasks.ErrMissingComment,
			"backward moves always require an explanatory comment")
	}
	if !e.canMoveBackward(ctx, act, w) {
		return nil, moveErr(metatasks.ErrPermissionDenied,
			"backward moves require admin, staff, or the item's creator")
	}

	if targetStepID.String() == w.CurrentStepID.String() {
		return nil, moveErr(metatasks.ErrInvalidBackwardTarget,
			"item is already on the target step")
	}
	visited, err := e.visitedSteps(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !containsStep(visited, targetStepID) {
		return nil, moveErr(metatasks.ErrInvalidBackwardTarget,
			"target step is not in the item's visited history")
	}

	target, err := e.workflows.GetStep(ctx, w.WorkflowID, targetStepID)
	if err != nil {
		return nil, err
	}

	expected := w.Version
	now := e.now().UTC()
	from := w.CurrentStepID

	w.CurrentStepID = target.ID
	w.StepEnteredAt = now
	w.UpdatedAt = now
	if target.Terminal {
		w.Completed = true
		w.CompletedAt = &now
	} else {
		w.Completed = false
		w.CompletedAt = nil
	}
	e.reassignForStep(ctx, target, w)
	w.Version = expected + 1

	hist := &item.HistoryEntry{
		ID:         id.NewHistoryID(),
		ItemID:     w.ID,
		FromStepID: from,
		ToStepID:   target.ID,
		ActorID:    act.ID,
		Direction:  item.DirectionBackward,
		Comment:    comment,
		Snapshot:   w.SnapshotData(),
		CreatedAt:  now,
	}

	if err := e.items.CommitMove(ctx, w, expected, hist); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "item moved backward",
		"item_id", w.ID.String(),
		"from_step_id", from.String(),
		"to_step_id", target.ID.String(),
		"actor_id", act.ID.String())

	e.exts.EmitMovedBackward(ctx, w, hist)
	return w, nil
}

// canMoveBackward authorizes backward moves: admin or staff role, or the
// item's creator. The rule is fixed, not configured per transition.
func (e *Executor) canMoveBackward(ctx context.Context, act *actor.Actor, w *item.WorkItem) bool {
	if act.ID.String() == w.CreatorID.String() {
		return true
	}
	return e.perms.IsAdminOrStaff(ctx, act)
}

// reassignForStep moves the item to a member of the destination step's
// team, when the step has one and a policy is configured. Steps without a
// team leave the assignee untouched.
func (e *Executor) reassignForStep(ctx context.Context, target *workflow.Step, w *item.WorkItem) {
	if target.AssignedTeamID.IsNil() || e.assign == nil {
		return
	}
	assignee, ok, err := e.assign.PickAssignee(ctx, target.AssignedTeamID, w)
	if err != nil {
		e.logger.WarnContext(ctx, "backward reassignment failed",
			"item_id", w.ID.String(),
			"team_id", target.AssignedTeamID.String(),
			"error", err.Error())
		return
	}
	if ok {
		w.AssigneeID = assignee
	}
}

// visitedSteps returns the distinct steps the item's history has arrived
// at, in first-visit order.
func (e *Executor) visitedSteps(ctx context.Context, itemID id.ItemID) ([]id.StepID, error) {
	entries, err := e.items.ListHistory(ctx, itemID, item.ListOpts{})
	if err != nil {
		return nil, err
	}
	return item.VisitedSteps(entries), nil
}

func containsStep(steps []id.StepID, want id.StepID) bool {
	for _, s := range steps {
		if s.String() == want.String() {
			return true
		}
	}
	return false
}
