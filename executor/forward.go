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

// MoveRequest carries the caller-supplied inputs for a forward move.
type MoveRequest struct {
	// Comment is mandatory when the transition carries the
	// requires-comment flag.
	Comment string

	// Confirmed acknowledges a requires-confirmation transition. An
	// unconfirmed request for such a transition is rejected so the
	// caller can surface the confirmation message and retry.
	Confirmed bool
}

// ApplyTransition executes a configured transition on a work item. The
// move validates the graph, the transition's permission level, and its
// behavior flags, then commits atomically under the item's version. A
// version conflict triggers one silent re-validation against fresh state;
// a second conflict fails with ErrConcurrentModification.
func (e *Executor) ApplyTransition(ctx context.Context, act *actor.Actor, itemID id.ItemID, transitionID id.TransitionID, req MoveRequest) (*item.WorkItem, error) {
	const attempts = 2
	ctx = scope.With(ctx, act.ID, act.OrgID)

	var lastErr error
	for i := 0; i < attempts; i++ {
		w, err := e.applyOnce(ctx, act, itemID, transitionID, req)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, metatasks.ErrVersionConflict) {
			return nil, e.denied(ctx, itemID, act.ID, err)
		}
		lastErr = err
	}

	e.logger.WarnContext(ctx, "move lost version race twice",
		"item_id", itemID.String(),
		"transition_id", transitionID.String(),
		"error", lastErr.Error())
	return nil, e.denied(ctx, itemID, act.ID, &metatasks.MoveError{
		Kind:         metatasks.ErrConcurrentModification,
		Rule:         "work item changed while the move was validating",
		ItemID:       itemID,
		ActorID:      act.ID,
		TransitionID: transitionID,
	})
}

// applyOnce runs one full validate-and-commit pass. It returns
// metatasks.ErrVersionConflict (possibly wrapped) when the commit lost
// the version race, and a *metatasks.MoveError for every validation
// failure.
func (e *Executor) applyOnce(ctx context.Context, act *actor.Actor, itemID id.ItemID, transitionID id.TransitionID, req MoveRequest) (*item.WorkItem, error) {
	w, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	t, err := e.workflows.GetTransition(ctx, w.WorkflowID, transitionID)
	if err != nil {
		return nil, err
	}

	moveErr := func(kind error, rule string) *metatasks.MoveError {
		return &metatasks.MoveError{
			Kind:         kind,
			Rule:         rule,
			ItemID:       itemID,
			ActorID:      act.ID,
			StepID:       w.CurrentStepID,
			TransitionID: transitionID,
		}
	}

	if t.FromStepID.String() != w.CurrentStepID.String() {
		return nil, moveErr(metatasks.ErrInvalidTransition,
			"transition does not start at the item's current step")
	}
	if !t.Active {
		return nil, moveErr(metatasks.ErrInactiveTransition, "transition is inactive")
	}

	from, err := e.workflows.GetStep(ctx, w.WorkflowID, t.FromStepID)
	if err != nil {
		return nil, err
	}
	to, err := e.workflows.GetStep(ctx, w.WorkflowID, t.ToStepID)
	if err != nil {
		return nil, err
	}

	if d := e.perms.CanExecute(ctx, act, t, w, from); !d.Allowed {
		if d.Err != nil {
			return nil, moveErr(d.Err, d.Reason)
		}
		return nil, moveErr(metatasks.ErrPermissionDenied, d.Reason)
	}

	if t.RequiresConfirmation && !req.Confirmed {
		return nil, moveErr(metatasks.ErrConfirmationRequired, t.ConfirmationMessage)
	}
	if t.RequiresComment && req.Comment == "" {
		return nil, moveErr(metatasks.ErrMissingComment, t.CommentPrompt)
	}

	if to.RequiresBooking {
		if err := e.checkBooking(ctx, to, w); err != nil {
			return nil, moveErr(metatasks.ErrBookingRequired, err.Error())
		}
	}

	expected := w.Version
	now := e.now().UTC()

	w.CurrentStepID = to.ID
	w.StepEnteredAt = now
	w.UpdatedAt = now
	if to.Terminal {
		w.Completed = true
		w.CompletedAt = &now
	} else {
		w.Completed = false
		w.CompletedAt = nil
	}
	e.autoAssign(ctx, t, to, w)
	w.Version = expected + 1

	hist := &item.HistoryEntry{
		ID:         id.NewHistoryID(),
		ItemID:     w.ID,
		FromStepID: from.ID,
		ToStepID:   to.ID,
		ActorID:    act.ID,
		Direction:  item.DirectionForward,
		Comment:    req.Comment,
		Snapshot:   w.SnapshotData(),
		CreatedAt:  now,
	}

	if err := e.items.CommitMove(ctx, w, expected, hist); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "transition applied",
		"item_id", w.ID.String(),
		"transition_id", t.ID.String(),
		"from_step", from.Name,
		"to_step", to.Name,
		"actor_id", act.ID.String())

	e.exts.EmitTransitionApplied(ctx, w, t, hist)
	return w, nil
}

// checkBooking consults the booking gate under the configured timeout.
// Every failure mode blocks the move.
func (e *Executor) checkBooking(ctx context.Context, to *workflow.Step, w *item.WorkItem) error {
	if e.gate == nil {
		return errors.New("step requires booking and no booking gate is configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.BookingTimeout)
	defer cancel()

	ok, err := e.gate.IsAvailable(ctx, to, w)
	if err != nil {
		e.logger.WarnContext(ctx, "booking check failed",
			"item_id", w.ID.String(),
			"step_id", to.ID.String(),
			"error", err.Error())
		return errors.New("booking availability could not be confirmed")
	}
	if !ok {
		return errors.New("destination step has no booking capacity")
	}
	return nil
}

// autoAssign reassigns the item to a member of the destination step's
// team when the transition asks for it. Assignment is best-effort: policy
// errors are logged and the move proceeds with the assignee unchanged.
func (e *Executor) autoAssign(ctx context.Context, t *workflow.Transition, to *workflow.Step, w *item.WorkItem) {
	if !t.AutoAssignToStepTeam || to.AssignedTeamID.IsNil() || e.assign == nil {
		return
	}
	assignee, ok, err := e.assign.PickAssignee(ctx, to.AssignedTeamID, w)
	if err != nil {
		e.logger.WarnContext(ctx, "auto-assignment failed",
			"item_id", w.ID.String(),
			"team_id", to.AssignedTeamID.String(),
			"error", err.Error())
		return
	}
	if ok {
		w.AssigneeID = assignee
	}
}

// denied emits the move-denied hook for validation failures and passes
// the error through. Not-found and storage errors are not denials and
// skip the hook.
func (e *Executor) denied(ctx context.Context, itemID id.ItemID, actorID id.ActorID, err error) error {
	var mv *metatasks.MoveError
	if errors.As(err, &mv) {
		e.exts.EmitMoveDenied(ctx, itemID, actorID, err)
	}
	return err
}
