package executor

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// BookingGate answers whether a booking-gated step can accept an item.
// The executor calls it under a deadline (Config.BookingTimeout) and
// fails closed: an error, a timeout, or a false answer all block the
// move. A nil gate blocks every booking-gated move.
type BookingGate interface {
	IsAvailable(ctx context.Context, s *workflow.Step, w *item.WorkItem) (bool, error)
}

// BookingGateFunc adapts a function to the BookingGate interface.
type BookingGateFunc func(ctx context.Context, s *workflow.Step, w *item.WorkItem) (bool, error)

// IsAvailable calls f(ctx, s, w).
func (f BookingGateFunc) IsAvailable(ctx context.Context, s *workflow.Step, w *item.WorkItem) (bool, error) {
	return f(ctx, s, w)
}

// AssignmentPolicy picks an assignee from a step's assigned team when a
// transition carries the auto-assign flag. Returning ok=false leaves the
// item's assignee unchanged.
type AssignmentPolicy interface {
	PickAssignee(ctx context.Context, teamID id.TeamID, w *item.WorkItem) (assignee id.ActorID, ok bool, err error)
}

// AssignmentPolicyFunc adapts a function to the AssignmentPolicy
// interface.
type AssignmentPolicyFunc func(ctx context.Context, teamID id.TeamID, w *item.WorkItem) (id.ActorID, bool, error)

// PickAssignee calls f(ctx, teamID, w).
func (f AssignmentPolicyFunc) PickAssignee(ctx context.Context, teamID id.TeamID, w *item.WorkItem) (id.ActorID, bool, error) {
	return f(ctx, teamID, w)
}
